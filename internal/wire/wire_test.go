package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wifi-csi/radar/internal/engine"
	"github.com/wifi-csi/radar/internal/layout"
	"github.com/wifi-csi/radar/internal/wire"
)

func TestEncodeDecodeFrame_RoundTrips(t *testing.T) {
	f := engine.RawFrame{
		Raw: []byte{1, 2, 3, 4, 5},
		Rx: layout.RxControl{
			RSSI:             -40,
			SignalMode:       layout.SignalModeHT,
			ChannelWidth:     layout.Bandwidth20MHz,
			STBC:             true,
			AGCGain:          30,
			FFTGain:          -2,
			TimestampUS:      123456,
			SecondaryChannel: layout.SecondaryChanBelow,
		},
		SrcMAC:      [6]byte{1, 1, 1, 1, 1, 1},
		DstMAC:      [6]byte{2, 2, 2, 2, 2, 2},
		PayloadLen:  5,
		TimestampMS: 42,
	}

	decoded, err := wire.DecodeFrame(wire.EncodeFrame(f))
	require.NoError(t, err)
	assert.Equal(t, f.Raw, decoded.Raw)
	assert.Equal(t, f.Rx, decoded.Rx)
	assert.Equal(t, f.SrcMAC, decoded.SrcMAC)
	assert.Equal(t, f.DstMAC, decoded.DstMAC)
	assert.Equal(t, f.TimestampMS, decoded.TimestampMS)
}

func TestEncodeDecodeInfo_RoundTrips(t *testing.T) {
	info := engine.RadarInfo{WaveformJitter: 0.25, WaveformWander: 0.75}
	decoded, err := wire.DecodeInfo(wire.EncodeInfo(info))
	require.NoError(t, err)
	assert.InDelta(t, info.WaveformJitter, decoded.WaveformJitter, 1e-6)
	assert.InDelta(t, info.WaveformWander, decoded.WaveformWander, 1e-6)
}

func TestDecodeFrame_RejectsShortDatagram(t *testing.T) {
	_, err := wire.DecodeFrame([]byte{1, 2, 3})
	assert.Error(t, err)
}
