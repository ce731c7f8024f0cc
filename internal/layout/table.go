package layout

// SignalMode is the OFDM modulation class a frame was received with.
type SignalMode int

const (
	SignalModeNonHT SignalMode = iota
	SignalModeHT
	SignalModeHE
)

// Bandwidth is the channel width in use.
type Bandwidth int

const (
	Bandwidth20MHz Bandwidth = iota
	Bandwidth40MHz
)

// SecondaryChannel locates the extension channel for 40 MHz operation.
type SecondaryChannel int

const (
	SecondaryChanNone SecondaryChannel = iota
	SecondaryChanBelow
	SecondaryChanAbove
)

// ByteRange is a half-open [Start, Stop) range into a raw CSI buffer.
type ByteRange struct {
	Start, Stop int
}

// Row describes one sub-carrier layout: which LTF regions a raw CSI buffer
// of TotalBytes carries, and which byte ranges within it are valid tones.
// Ranges are bit-exact, reproduced from the reference layout table, and must
// not be recomputed from theory.
type Row struct {
	Second      SecondaryChannel
	SignalMode  SignalMode
	Bandwidth   Bandwidth
	STBC        bool
	TotalBytes  int
	ValidBytes  int

	LLTFBytes      int
	HTLTFBytes     int
	STBCHTLTFBytes int
	HELTFBytes     int
	STBCHELTFBytes int

	// Ranges are listed in row-declaration order, which the rebuilder must
	// preserve; this is not necessarily ascending Start.
	LLTF      []ByteRange
	HTLTF     []ByteRange
	STBCHTLTF []ByteRange
	HELTF     []ByteRange
	STBCHELTF []ByteRange
}

// Table is the static, ordered, opaque layout table for the ESP32/S2/S3/C3
// CSI sub-carrier variant. Reproduced byte-exact from
// components/esp-radar/src/csi_sub_carrier_table.c's
// CONFIG_IDF_TARGET_ESP32 block.
var Table = []Row{
	// secondary channel: none
	{
		Second: SecondaryChanNone, SignalMode: SignalModeNonHT, Bandwidth: Bandwidth20MHz, STBC: false,
		TotalBytes: 128, ValidBytes: 104, LLTFBytes: 104,
		LLTF: []ByteRange{{76, 128}, {2, 54}},
	},
	{
		Second: SecondaryChanNone, SignalMode: SignalModeHT, Bandwidth: Bandwidth20MHz, STBC: false,
		TotalBytes: 256, ValidBytes: 216, LLTFBytes: 104, HTLTFBytes: 112,
		LLTF:  []ByteRange{{76, 128}, {2, 54}},
		HTLTF: []ByteRange{{200, 256}, {130, 186}},
	},
	{
		Second: SecondaryChanNone, SignalMode: SignalModeHT, Bandwidth: Bandwidth20MHz, STBC: true,
		TotalBytes: 384, ValidBytes: 328, LLTFBytes: 104, HTLTFBytes: 112, STBCHTLTFBytes: 112,
		LLTF:      []ByteRange{{76, 128}, {2, 54}},
		HTLTF:     []ByteRange{{200, 256}, {130, 186}},
		STBCHTLTF: []ByteRange{{258, 314}, {328, 384}},
	},
	// secondary channel: below
	{
		Second: SecondaryChanBelow, SignalMode: SignalModeNonHT, Bandwidth: Bandwidth20MHz, STBC: false,
		TotalBytes: 128, ValidBytes: 104, LLTFBytes: 104,
		LLTF: []ByteRange{{12, 64}, {66, 118}},
	},
	{
		Second: SecondaryChanBelow, SignalMode: SignalModeHT, Bandwidth: Bandwidth20MHz, STBC: false,
		TotalBytes: 256, ValidBytes: 216, LLTFBytes: 104, HTLTFBytes: 112,
		LLTF:  []ByteRange{{12, 64}, {66, 118}},
		HTLTF: []ByteRange{{132, 188}, {190, 246}},
	},
	{
		Second: SecondaryChanBelow, SignalMode: SignalModeHT, Bandwidth: Bandwidth20MHz, STBC: true,
		TotalBytes: 380, ValidBytes: 328, LLTFBytes: 104, HTLTFBytes: 112, STBCHTLTFBytes: 112,
		LLTF:      []ByteRange{{12, 64}, {66, 118}},
		HTLTF:     []ByteRange{{132, 188}, {190, 246}},
		STBCHTLTF: []ByteRange{{256, 312}, {314, 370}},
	},
	{
		Second: SecondaryChanBelow, SignalMode: SignalModeHT, Bandwidth: Bandwidth40MHz, STBC: false,
		TotalBytes: 384, ValidBytes: 328, LLTFBytes: 104, HTLTFBytes: 224,
		LLTF:  []ByteRange{{12, 64}, {66, 118}},
		HTLTF: []ByteRange{{268, 324}, {326, 382}, {132, 188}, {190, 246}},
	},
	{
		Second: SecondaryChanBelow, SignalMode: SignalModeHT, Bandwidth: Bandwidth40MHz, STBC: true,
		TotalBytes: 612, ValidBytes: 552, LLTFBytes: 104, HTLTFBytes: 224, STBCHTLTFBytes: 224,
		LLTF:      []ByteRange{{12, 64}, {66, 118}},
		HTLTF:     []ByteRange{{254, 310}, {312, 368}, {132, 188}, {190, 246}},
		STBCHTLTF: []ByteRange{{496, 552}, {554, 610}, {374, 430}, {432, 488}},
	},
	// secondary channel: above
	{
		Second: SecondaryChanAbove, SignalMode: SignalModeNonHT, Bandwidth: Bandwidth20MHz, STBC: false,
		TotalBytes: 128, ValidBytes: 104, LLTFBytes: 104,
		LLTF: []ByteRange{{12, 64}, {66, 118}},
	},
	{
		Second: SecondaryChanAbove, SignalMode: SignalModeHT, Bandwidth: Bandwidth20MHz, STBC: false,
		TotalBytes: 256, ValidBytes: 216, LLTFBytes: 104, HTLTFBytes: 112,
		LLTF:  []ByteRange{{12, 64}, {66, 118}},
		HTLTF: []ByteRange{{132, 188}, {190, 246}},
	},
	{
		Second: SecondaryChanAbove, SignalMode: SignalModeHT, Bandwidth: Bandwidth20MHz, STBC: true,
		TotalBytes: 380, ValidBytes: 328, LLTFBytes: 104, HTLTFBytes: 112, STBCHTLTFBytes: 112,
		LLTF:      []ByteRange{{12, 64}, {66, 118}},
		HTLTF:     []ByteRange{{132, 188}, {190, 246}},
		STBCHTLTF: []ByteRange{{256, 312}, {314, 370}},
	},
	{
		Second: SecondaryChanAbove, SignalMode: SignalModeHT, Bandwidth: Bandwidth40MHz, STBC: false,
		TotalBytes: 384, ValidBytes: 328, LLTFBytes: 104, HTLTFBytes: 224,
		LLTF:  []ByteRange{{12, 64}, {66, 118}},
		HTLTF: []ByteRange{{268, 324}, {326, 382}, {132, 188}, {190, 246}},
	},
	{
		Second: SecondaryChanAbove, SignalMode: SignalModeHT, Bandwidth: Bandwidth40MHz, STBC: true,
		TotalBytes: 612, ValidBytes: 552, LLTFBytes: 104, HTLTFBytes: 224, STBCHTLTFBytes: 224,
		LLTF:      []ByteRange{{12, 64}, {66, 118}},
		HTLTF:     []ByteRange{{254, 310}, {312, 368}, {132, 188}, {190, 246}},
		STBCHTLTF: []ByteRange{{496, 552}, {554, 610}, {374, 430}, {432, 488}},
	},
}
