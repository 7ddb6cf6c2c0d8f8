package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackendType(t *testing.T) {
	tests := []struct {
		in   string
		want BackendType
	}{
		{"", BackendTypeDefault},
		{"Vulkan", BackendTypeVulkan},
		{" d3d12 ", BackendTypeD3D12},
		{"opengles", BackendTypeOpenGLES},
		{"headless", BackendTypeHeadless},
	}
	for _, tt := range tests {
		got, err := ParseBackendType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseBackendType("glide")
	assert.Error(t, err)
}

func TestBackendTypeTextRoundTrip(t *testing.T) {
	for b := BackendTypeDefault; b <= BackendTypeHeadless; b++ {
		text, err := b.MarshalText()
		require.NoError(t, err)
		var back BackendType
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, b, back)
	}
	_, err := BackendType(99).MarshalText()
	assert.Error(t, err)
}

func TestPowerPreferenceUnmarshalText(t *testing.T) {
	var p PowerPreference
	require.NoError(t, p.UnmarshalText([]byte("High-Performance")))
	assert.Equal(t, PowerPreferenceHighPerformance, p)
	assert.Error(t, p.UnmarshalText([]byte("turbo")))
}

func TestSurfaceStatusSkippable(t *testing.T) {
	assert.True(t, SurfaceStatusOutdated.Skippable())
	assert.True(t, SurfaceStatusLost.Skippable())
	assert.False(t, SurfaceStatusSuccess.Skippable())
	assert.False(t, SurfaceStatusTimeout.Skippable())
	assert.False(t, SurfaceStatusOutOfMemory.Skippable())
	assert.False(t, SurfaceStatusDeviceLost.Skippable())
}

func TestTextureFormatIsDepth(t *testing.T) {
	assert.True(t, TextureFormatDepth24Plus.IsDepth())
	assert.False(t, TextureFormatBGRA8Unorm.IsDepth())
	assert.Equal(t, "depth24plus", TextureFormatDepth24Plus.String())
}
