// Package config loads and merges radar configuration, grounded on
// esp_radar.h's esp_radar_csi_config_t/esp_radar_dec_config_t defaults, with
// a pflag-driven CLI option layer over it.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// MACAddr is a 6-byte hardware address, round-tripping through YAML and the
// command line as a standard "aa:bb:cc:dd:ee:ff" string.
type MACAddr [6]byte

func (m MACAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

func (m MACAddr) Type() string { return "mac" }

func (m *MACAddr) Set(s string) error {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return err
	}
	if len(hw) != 6 {
		return fmt.Errorf("config: %q is not a 6-byte MAC address", s)
	}
	copy(m[:], hw)
	return nil
}

func (m MACAddr) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *MACAddr) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return m.Set(s)
}

// LTFType selects which decoded region feeds the pre-processing pipeline,
// mirroring esp_radar_ltf_type_t.
type LTFType int

const (
	LTFTypeLLTF LTFType = iota
	LTFTypeHTLTF
	LTFTypeSTBCHTLTF
	LTFTypeHELTF
	LTFTypeSTBCHELTF
)

// AcquireFlags mirrors the per-modulation CSI-acquisition bitfield in
// esp_radar_csi_config_t (the ESP32-C5/C6/C61 branch).
type AcquireFlags struct {
	LLTF        bool `yaml:"lltf"`
	HT20        bool `yaml:"ht20"`
	HT40        bool `yaml:"ht40"`
	VHT         bool `yaml:"vht"`
	SU          bool `yaml:"su"`
	MU          bool `yaml:"mu"`
	DCM         bool `yaml:"dcm"`
	Beamformed  bool `yaml:"beamformed"`
}

// Config is the full radar configuration, merging the CSI-acquisition and
// decoder sections of esp_radar_config_t into one Go-native document.
type Config struct {
	// CSI acquisition (esp_radar_csi_config_t)
	CSIRecvIntervalMS int          `yaml:"csi_recv_interval"`
	CSICompensateEn   bool         `yaml:"csi_compensate_en"`
	FilterMAC         MACAddr      `yaml:"filter_mac"`
	FilterDMAC        MACAddr      `yaml:"filter_dmac"`
	FilterDMACFlag    bool         `yaml:"filter_dmac_flag"`
	Acquire           AcquireFlags `yaml:"acquire"`

	// Decoder / algorithm (esp_radar_dec_config_t)
	LTFType             LTFType `yaml:"ltf_type"`
	SubCarrierStepSize  int     `yaml:"sub_carrier_step_size"`
	OutliersThreshold   int     `yaml:"outliers_threshold"`
	CSIHandleTimeMS     int     `yaml:"csi_handle_time"`
	PCAWindowSize       int     `yaml:"pca_window_size"`

	// LLTF-12-bit classification mode: classifies frames by buffer length
	// alone instead of the full per-row rule set.
	LLTF12BitOnly bool `yaml:"lltf_12bit_only"`
}

// Default returns the configuration baseline, matching
// ESP_RADAR_CSI_CONFIG_DEFAULT/ESP_RADAR_DEC_CONFIG_DEFAULT: no MAC
// filtering (filter_mac all-0xff), compensation on, HT-LTF decoding,
// step size 4, outlier threshold 8, 200ms handle time, PCA window 4.
func Default() Config {
	return Config{
		CSIRecvIntervalMS: 10,
		CSICompensateEn:   true,
		FilterMAC:         MACAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		FilterDMAC:        MACAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		FilterDMACFlag:    false,
		Acquire: AcquireFlags{
			HT20: true, HT40: true, VHT: true, SU: true, MU: true, DCM: true, Beamformed: true,
		},
		LTFType:            LTFTypeHTLTF,
		SubCarrierStepSize: 4,
		OutliersThreshold:  8,
		CSIHandleTimeMS:    200,
		PCAWindowSize:      4,
	}
}

// LoadYAML merges a YAML document at path over Default(), so a config file
// only needs to state the fields it overrides.
func LoadYAML(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindFlags registers pflag overrides for every field a radar operator is
// expected to tune at the command line, one long flag per tunable, all but
// --filter-dmac-flag with a one-letter shorthand.
func BindFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.IntVarP(&cfg.CSIRecvIntervalMS, "csi-recv-interval", "i", cfg.CSIRecvIntervalMS, "CSI receive interval, ms")
	fs.BoolVarP(&cfg.CSICompensateEn, "gain-compensate", "g", cfg.CSICompensateEn, "Enable RX-gain compensation")
	fs.VarP(&cfg.FilterMAC, "filter-mac", "m", "Only accept frames from this source MAC (ff:ff:ff:ff:ff:ff disables)")
	fs.VarP(&cfg.FilterDMAC, "filter-dmac", "d", "Destination MAC to match when --filter-dmac-flag is set")
	fs.BoolVar(&cfg.FilterDMACFlag, "filter-dmac-flag", cfg.FilterDMACFlag, "Enable destination MAC filtering")
	fs.IntVarP(&cfg.SubCarrierStepSize, "sub-carrier-step", "s", cfg.SubCarrierStepSize, "Sub-carrier step size")
	fs.IntVarP(&cfg.OutliersThreshold, "outliers-threshold", "o", cfg.OutliersThreshold, "Outlier amplitude threshold, 0 disables")
	fs.IntVarP(&cfg.CSIHandleTimeMS, "csi-handle-time", "t", cfg.CSIHandleTimeMS, "Detection window handling time, ms")
	fs.IntVarP(&cfg.PCAWindowSize, "pca-window-size", "w", cfg.PCAWindowSize, "PCA jitter history depth")
	fs.BoolVarP(&cfg.LLTF12BitOnly, "lltf-12bit-only", "b", cfg.LLTF12BitOnly, "Classify frames by length alone (12-bit packed L-LTF mode)")
}

// Validate makes the decoder timing self-consistent by raising
// csi_handle_time to esp_radar_start's floor when it is below it:
// csi_handle_time >= csi_recv_interval * pca_window_size.
func (c *Config) Validate() {
	floor := c.CSIRecvIntervalMS * c.PCAWindowSize
	if c.CSIHandleTimeMS < floor {
		c.CSIHandleTimeMS = floor
	}
}
