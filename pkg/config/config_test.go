package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.Equal(t, 250, cfg.Processing.MaxGroups)
	require.Equal(t, "B", cfg.Processing.Successive)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
processing:
  range:
    floor: 0.5
    ceil: 1
  maxGroups: 3
  successive: "B[0.5:1]G"
output:
  clobber: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, Range{Floor: 0.5, Ceil: 1}, cfg.Processing.Range)
	require.Equal(t, 3, cfg.Processing.MaxGroups)
	require.Equal(t, "B[0.5:1]G", cfg.Processing.Successive)
	require.True(t, cfg.Output.Clobber)
	// untouched keys keep their defaults
	require.Equal(t, math.MaxFloat64, cfg.Processing.GroupRange.Ceil)
	require.Equal(t, "png", cfg.Output.SliceFormat)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"too many groups": "processing:\n  maxGroups: 251\n",
		"inverted range":  "processing:\n  range: {floor: 2, ceil: 1}\n",
		"empty chain":     "processing:\n  successive: \"\"\n",
		"not yaml":        "processing: [\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(data), 0644))

			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}
