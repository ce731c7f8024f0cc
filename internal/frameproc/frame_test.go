package frameproc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wifi-csi/radar/internal/frameproc"
	"github.com/wifi-csi/radar/internal/layout"
)

// rawFilledWithOffsets builds a buffer of n bytes where raw[i] == byte(i),
// so a rebuilt frame's contents can be checked against their source offsets.
func rawFilledWithOffsets(n int) []byte {
	raw := make([]byte, n)
	for i := range raw {
		raw[i] = byte(i)
	}
	return raw
}

func concatRanges(raw []byte, ranges []layout.ByteRange) []int16 {
	var want []int16
	for _, rg := range ranges {
		for _, b := range raw[rg.Start:rg.Stop] {
			want = append(want, int16(int8(b)))
		}
	}
	return want
}

func TestRebuild_ExactnessAcrossAllRows(t *testing.T) {
	for i, row := range layout.Table {
		raw := rawFilledWithOffsets(row.TotalBytes)

		frame, err := frameproc.Rebuild(raw, &row, frameproc.DataType8Bit)
		require.NoErrorf(t, err, "row %d", i)

		var want []int16
		want = append(want, concatRanges(raw, row.LLTF)...)
		want = append(want, concatRanges(raw, row.HTLTF)...)
		want = append(want, concatRanges(raw, row.STBCHTLTF)...)
		want = append(want, concatRanges(raw, row.HELTF)...)
		want = append(want, concatRanges(raw, row.STBCHELTF)...)

		assert.Equalf(t, want, frame.Samples, "row %d", i)

		sum := frame.LLTFValidLen + frame.HTLTFValidLen + frame.STBCHTLTFValidLen +
			frame.HELTFValidLen + frame.STBCHELTFValidLen
		assert.Equalf(t, row.ValidBytes, sum, "row %d: region counters must sum to valid_bytes", i)
	}
}

func TestRebuild_RejectsWrongLength(t *testing.T) {
	row := layout.Table[0]
	_, err := frameproc.Rebuild(make([]byte, row.TotalBytes+1), &row, frameproc.DataType8Bit)
	assert.Error(t, err)
}

func TestSignExtend12(t *testing.T) {
	cases := map[uint16]int16{
		0x000: 0,
		0x7FF: 2047,
		0x800: -2048,
		0xFFF: -1,
	}
	for in, want := range cases {
		assert.Equal(t, want, frameproc.SignExtend12(in), "input 0x%03x", in)
	}
}
