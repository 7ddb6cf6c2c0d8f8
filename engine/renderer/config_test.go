package renderer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal/hal_fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, MSAA4x, cfg.SampleCount)
	assert.True(t, cfg.VSync)
	assert.False(t, cfg.GPUTiming)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
width = 1280
height = 720
sample_count = 1
vsync = false
gpu_timing = true
backend = "vulkan"
power_preference = "high-performance"
ready_poll_interval = "10ms"
`))
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, MSAAOff, cfg.SampleCount)
	assert.False(t, cfg.VSync)
	assert.True(t, cfg.GPUTiming)
	assert.Equal(t, hal.BackendTypeVulkan, cfg.Backend)
	assert.Equal(t, hal.PowerPreferenceHighPerformance, cfg.PowerPreference)
	assert.Equal(t, Duration(10*time.Millisecond), cfg.ReadyPollInterval)
	assert.Equal(t, DefaultConfig().ReadyRetries, cfg.ReadyRetries, "unset keys keep their defaults")
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("widht = 10\n"))
	assert.Error(t, err)
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"sample count": "sample_count = 3\n",
		"retries":      "ready_retries = 0\n",
		"backend":      "backend = \"glide\"\n",
		"duration":     "ready_poll_interval = \"soon\"\n",
		"size":         "width = -1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestConfigMarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = hal.BackendTypeMetal
	cfg.VSync = false

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "metal")

	back, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renderer.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = 320\nheight = 200\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestWithConfigAppliesBeforeLaterOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 100
	rr, err := NewRenderer(hal_fake.NewDriver(), WithConfig(cfg), WithSize(200, 150))
	require.NoError(t, err)
	r := rr.(*renderer)
	assert.Equal(t, 200, r.cfg.Width)
	assert.Equal(t, 150, r.cfg.Height)
}
