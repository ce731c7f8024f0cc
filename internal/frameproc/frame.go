// Package frameproc rebuilds a classified raw CSI buffer into a contiguous
// filtered frame, sign-extending 12-bit packed samples where applicable.
package frameproc

import (
	"encoding/binary"

	"github.com/wifi-csi/radar/internal/errs"
	"github.com/wifi-csi/radar/internal/layout"
)

// DataType selects how raw bytes within a matched layout's ranges are
// interpreted.
type DataType int

const (
	// DataType8Bit treats each raw byte as one signed 8-bit sample.
	DataType8Bit DataType = iota
	// DataType12BitPacked treats each little-endian 16-bit word as one
	// signed 12-bit sample in its low 12 bits, sign-extended to int16.
	DataType12BitPacked
)

// FilteredFrame is the contiguous, layout-normalised view of one CSI packet.
// It is owned by whoever holds it: do not retain it past the point a worker
// is done with it, and do not hand the same pointer to two owners.
type FilteredFrame struct {
	Rx     layout.RxControl
	Row    *layout.Row
	SeqID  uint64
	SrcMAC [6]byte
	DstMAC [6]byte

	DataType DataType

	LLTFValidLen      int
	HTLTFValidLen     int
	STBCHTLTFValidLen int
	HELTFValidLen     int
	STBCHELTFValidLen int

	// Samples is the contiguous valid tones, in row-declaration order
	// (LLTF, HT-LTF, STBC-HT-LTF, HE-LTF, STBC-HE-LTF), sign-extended to
	// int16 regardless of DataType.
	Samples []int16

	// GainCompensation is the factor actually applied by the gain
	// normaliser (1.0 if compensation is disabled or not yet ready).
	GainCompensation float32
}

// SignExtend12 sign-extends the low 12 bits of v (a little-endian 16-bit
// word) to a full int16: {0x000,0x7FF,0x800,0xFFF} -> {0,+2047,-2048,-1}.
func SignExtend12(v uint16) int16 {
	return int16(v<<4) >> 4
}

type region struct {
	ranges  []layout.ByteRange
	wordLen int
}

// Rebuild copies every valid tone declared by row into a contiguous
// FilteredFrame, appending regions in row-declaration order. raw must have
// length row.TotalBytes; dt selects the per-sample decode.
func Rebuild(raw []byte, row *layout.Row, dt DataType) (*FilteredFrame, error) {
	if row == nil {
		return nil, errs.New(errs.InvalidArgument, "frameproc.Rebuild", "nil row")
	}
	if len(raw) != row.TotalBytes {
		return nil, errs.New(errs.LayoutMismatch, "frameproc.Rebuild", "raw length does not match row.TotalBytes")
	}

	frame := &FilteredFrame{Row: row, DataType: dt}

	regions := []struct {
		ranges  []layout.ByteRange
		dst     *int
	}{
		{row.LLTF, &frame.LLTFValidLen},
		{row.HTLTF, &frame.HTLTFValidLen},
		{row.STBCHTLTF, &frame.STBCHTLTFValidLen},
		{row.HELTF, &frame.HELTFValidLen},
		{row.STBCHELTF, &frame.STBCHELTFValidLen},
	}

	for _, r := range regions {
		if len(r.ranges) == 0 {
			continue
		}
		n, err := appendRegion(&frame.Samples, raw, r.ranges, dt, row.ValidBytes)
		if err != nil {
			return nil, err
		}
		*r.dst = n
	}

	frame.GainCompensation = 1.0
	return frame, nil
}

func appendRegion(out *[]int16, raw []byte, ranges []layout.ByteRange, dt DataType, validBytes int) (int, error) {
	before := len(*out)

	for _, rg := range ranges {
		if rg.Start < 0 || rg.Stop > len(raw) || rg.Start > rg.Stop {
			return 0, errs.New(errs.LayoutMismatch, "frameproc.appendRegion", "range out of bounds")
		}

		switch dt {
		case DataType8Bit:
			for _, b := range raw[rg.Start:rg.Stop] {
				*out = append(*out, int16(int8(b)))
			}
		case DataType12BitPacked:
			span := raw[rg.Start:rg.Stop]
			for i := 0; i+1 < len(span); i += 2 {
				word := binary.LittleEndian.Uint16(span[i : i+2])
				*out = append(*out, SignExtend12(word))
			}
		default:
			return 0, errs.New(errs.InvalidArgument, "frameproc.appendRegion", "unknown data type")
		}
	}

	if totalBytesSoFar(out, dt) > validBytes {
		return 0, errs.New(errs.LayoutMismatch, "frameproc.appendRegion", "region overflowed valid_bytes")
	}
	return len(*out) - before, nil
}

// totalBytesSoFar estimates how many raw bytes the samples accumulated in
// out represent, for the overflow guard against row.ValidBytes (itself a
// byte count).
func totalBytesSoFar(out *[]int16, dt DataType) int {
	switch dt {
	case DataType12BitPacked:
		return len(*out) * 2
	default:
		return len(*out)
	}
}

// LTFType selects which decoded region of a FilteredFrame to hand to the
// pre-processing worker, mirroring esp_radar_get_ltf_data's switch.
type LTFType int

const (
	LTFTypeLLTF LTFType = iota
	LTFTypeHTLTF
	LTFTypeSTBCHTLTF
	LTFTypeHELTF
	LTFTypeSTBCHELTF
)

// Segment returns the sub-slice of frame.Samples for the requested LTF
// region; its length is the region's valid length. Returns errs.NotInitialised if the
// region is empty for this frame (the LTF type was not captured).
func (f *FilteredFrame) Segment(lt LTFType) ([]int16, error) {
	offset := 0
	var length int

	switch lt {
	case LTFTypeLLTF:
		length = f.LLTFValidLen
	case LTFTypeHTLTF:
		offset = f.LLTFValidLen
		length = f.HTLTFValidLen
	case LTFTypeSTBCHTLTF:
		offset = f.LLTFValidLen + f.HTLTFValidLen
		length = f.STBCHTLTFValidLen
	case LTFTypeHELTF:
		offset = f.LLTFValidLen + f.HTLTFValidLen + f.STBCHTLTFValidLen
		length = f.HELTFValidLen
	case LTFTypeSTBCHELTF:
		offset = f.LLTFValidLen + f.HTLTFValidLen + f.STBCHTLTFValidLen + f.HELTFValidLen
		length = f.STBCHELTFValidLen
	default:
		return nil, errs.New(errs.InvalidArgument, "frame.Segment", "unknown LTF type")
	}

	if length == 0 {
		return nil, errs.New(errs.NotInitialised, "frame.Segment", "requested LTF type has no data in this frame")
	}
	return f.Samples[offset : offset+length], nil
}
