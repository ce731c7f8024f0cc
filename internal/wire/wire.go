// Package wire defines the small binary framing the example apps use to
// move RawFrames and RadarInfo across a UDP socket or pipe — transport is
// an external-app concern, not part of the detection core itself.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/wifi-csi/radar/internal/engine"
	"github.com/wifi-csi/radar/internal/layout"
)

// header is the fixed-size prefix of an encoded RawFrame datagram.
type header struct {
	RSSI             int8
	DataRate         uint8
	RxFormat         uint8
	SignalMode       uint8
	MCS              uint8
	ChannelWidth     uint8
	STBC             uint8
	AGCGain          uint8
	FFTGain          int8
	TimestampUS      uint32
	NoiseFloor       int8
	Channel          uint8
	SecondaryChannel uint8
	SrcMAC           [6]byte
	DstMAC           [6]byte
	TimestampMS      uint32
	PayloadLen       uint32
}

// EncodeFrame serialises a RawFrame as a fixed header followed by its raw
// payload bytes, suitable for one UDP datagram or one length-prefixed
// record on a pipe.
func EncodeFrame(f engine.RawFrame) []byte {
	h := header{
		RSSI:             f.Rx.RSSI,
		DataRate:         f.Rx.DataRate,
		RxFormat:         uint8(f.Rx.RxFormat),
		SignalMode:       uint8(f.Rx.SignalMode),
		MCS:              f.Rx.MCS,
		ChannelWidth:     uint8(f.Rx.ChannelWidth),
		AGCGain:          f.Rx.AGCGain,
		FFTGain:          f.Rx.FFTGain,
		TimestampUS:      f.Rx.TimestampUS,
		NoiseFloor:       f.Rx.NoiseFloor,
		Channel:          f.Rx.Channel,
		SecondaryChannel: uint8(f.Rx.SecondaryChannel),
		SrcMAC:           f.SrcMAC,
		DstMAC:           f.DstMAC,
		TimestampMS:      f.TimestampMS,
		PayloadLen:       uint32(len(f.Raw)),
	}
	if f.Rx.STBC {
		h.STBC = 1
	}

	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, h)
	buf.Write(f.Raw)
	return buf.Bytes()
}

// DecodeFrame parses one EncodeFrame datagram back into a RawFrame.
func DecodeFrame(data []byte) (engine.RawFrame, error) {
	var h header
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return engine.RawFrame{}, fmt.Errorf("wire: short header: %w", err)
	}

	raw := make([]byte, h.PayloadLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return engine.RawFrame{}, fmt.Errorf("wire: short payload: %w", err)
	}

	return engine.RawFrame{
		Raw: raw,
		Rx: layout.RxControl{
			RSSI:             h.RSSI,
			DataRate:         h.DataRate,
			RxFormat:         layout.SignalMode(h.RxFormat),
			SignalMode:       layout.SignalMode(h.SignalMode),
			MCS:              h.MCS,
			ChannelWidth:     layout.Bandwidth(h.ChannelWidth),
			STBC:             h.STBC != 0,
			AGCGain:          h.AGCGain,
			FFTGain:          h.FFTGain,
			TimestampUS:      h.TimestampUS,
			NoiseFloor:       h.NoiseFloor,
			Channel:          h.Channel,
			SecondaryChannel: layout.SecondaryChannel(h.SecondaryChannel),
		},
		SrcMAC:      h.SrcMAC,
		DstMAC:      h.DstMAC,
		PayloadLen:  int(h.PayloadLen),
		TimestampMS: h.TimestampMS,
	}, nil
}

// infoWire is the wire form of RadarInfo: two big-endian float32s.
type infoWire struct {
	Jitter float32
	Wander float32
}

// EncodeInfo serialises a RadarInfo as one small fixed-size datagram.
func EncodeInfo(info engine.RadarInfo) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, infoWire{Jitter: info.WaveformJitter, Wander: info.WaveformWander})
	return buf.Bytes()
}

// DecodeInfo parses one EncodeInfo datagram back into a RadarInfo.
func DecodeInfo(data []byte) (engine.RadarInfo, error) {
	var w infoWire
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &w); err != nil {
		return engine.RadarInfo{}, fmt.Errorf("wire: short info datagram: %w", err)
	}
	return engine.RadarInfo{WaveformJitter: w.Jitter, WaveformWander: w.Wander}, nil
}
