package layout

import (
	"fmt"

	"github.com/wifi-csi/radar/internal/errs"
)

// RxControl is the per-packet radio metadata the frame classifier and the
// rest of the pipeline consume. It is produced once per packet by the
// out-of-scope radio collaborator and consumed once.
type RxControl struct {
	RSSI             int8
	DataRate         uint8
	RxFormat         SignalMode
	SignalMode       SignalMode
	MCS              uint8
	ChannelWidth     Bandwidth
	STBC             bool
	AGCGain          uint8
	FFTGain          int8
	TimestampUS      uint32
	NoiseFloor       int8
	Channel          uint8
	SecondaryChannel SecondaryChannel
}

// Classify selects the single layout row matching rawLen and the frame's
// radio metadata. When llft12BitOnly is set (the adapter's "12-bit LLTF-only"
// mode, where the other fields are not conveyed by the radio) matching is
// purely by TotalBytes == rawLen. Otherwise the first row whose
// (SignalMode, Bandwidth, STBC, SecondaryChannel) tuple equals rx's wins.
//
// Returns errs.UnknownLayout if no row matches.
func Classify(rawLen int, rx RxControl, llft12BitOnly bool) (*Row, error) {
	for i := range Table {
		row := &Table[i]

		if llft12BitOnly {
			if row.TotalBytes == rawLen {
				return row, nil
			}
			continue
		}

		if row.SignalMode == rx.SignalMode &&
			row.Bandwidth == rx.ChannelWidth &&
			row.STBC == rx.STBC &&
			row.Second == rx.SecondaryChannel &&
			row.TotalBytes == rawLen {
			return row, nil
		}
	}

	return nil, errs.New(errs.UnknownLayout, "layout.Classify",
		fmt.Sprintf("no row for raw_len=%d mode=%v bw=%v stbc=%v second=%v",
			rawLen, rx.SignalMode, rx.ChannelWidth, rx.STBC, rx.SecondaryChannel))
}
