package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wifi-csi/radar/internal/config"
)

func TestDefault_MatchesOriginalDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 4, cfg.SubCarrierStepSize)
	assert.Equal(t, 8, cfg.OutliersThreshold)
	assert.Equal(t, 200, cfg.CSIHandleTimeMS)
	assert.Equal(t, 4, cfg.PCAWindowSize)
	assert.Equal(t, config.LTFTypeHTLTF, cfg.LTFType)
	assert.Equal(t, config.MACAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, cfg.FilterMAC)
}

func TestValidate_RaisesHandleTimeFloor(t *testing.T) {
	cfg := config.Default()
	cfg.CSIHandleTimeMS = 5
	cfg.CSIRecvIntervalMS = 10
	cfg.PCAWindowSize = 4
	cfg.Validate()
	assert.Equal(t, 40, cfg.CSIHandleTimeMS)
}

func TestLoadYAML_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outliers_threshold: 0\ncsi_handle_time: 400\n"), 0o644))

	cfg, err := config.LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.OutliersThreshold)
	assert.Equal(t, 400, cfg.CSIHandleTimeMS)
	// untouched fields still carry their defaults
	assert.Equal(t, 4, cfg.SubCarrierStepSize)
}

func TestBindFlags_OverridesField(t *testing.T) {
	cfg := config.Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(&cfg, fs)
	require.NoError(t, fs.Parse([]string{"--outliers-threshold=0"}))
	assert.Equal(t, 0, cfg.OutliersThreshold)
}

func TestBindFlags_OverridesFilterMAC(t *testing.T) {
	cfg := config.Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(&cfg, fs)
	require.NoError(t, fs.Parse([]string{"--filter-mac=aa:bb:cc:dd:ee:ff", "--filter-dmac-flag"}))
	assert.Equal(t, config.MACAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, cfg.FilterMAC)
	assert.True(t, cfg.FilterDMACFlag)
}

func TestLoadYAML_RoundTripsFilterMAC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filter_mac: \"01:02:03:04:05:06\"\n"), 0o644))

	cfg, err := config.LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, config.MACAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, cfg.FilterMAC)
}
