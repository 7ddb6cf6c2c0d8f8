package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal/hal_fake"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLimitsAreUndefined(t *testing.T) {
	l := DefaultLimits()
	assert.Equal(t, hal.LimitU32Undefined, l.MaxTextureDimension2D)
	assert.Equal(t, hal.LimitU32Undefined, l.MaxBindGroups)
	assert.Equal(t, hal.LimitU64Undefined, l.MaxBufferSize)
	assert.Equal(t, hal.LimitU64Undefined, l.MaxUniformBufferBindSize)
}

func TestRequiredFeatures(t *testing.T) {
	drv := hal_fake.NewDriver()
	// the fake adapter reports the features of the instance that created it
	drv.Instance.RequestAdapter(hal.AdapterOptions{}, func(_ hal.RequestStatus, a hal.Adapter, _ string) {
		logger := common.Logger()
		assert.Equal(t, []hal.FeatureName{hal.FeatureNameDepthClipControl}, RequiredFeatures(a, false, logger))
		assert.Equal(t,
			[]hal.FeatureName{hal.FeatureNameDepthClipControl, hal.FeatureNameTimestampQuery},
			RequiredFeatures(a, true, logger))

		drv.Instance.Features[hal.FeatureNameTimestampQuery] = false
		assert.Equal(t, []hal.FeatureName{hal.FeatureNameDepthClipControl}, RequiredFeatures(a, true, logger))
	})
	drv.Instance.ProcessEvents()
	assert.NotNil(t, drv.Instance.Adapter)
}

func TestDeviceDescriptor(t *testing.T) {
	called := false
	desc := DeviceDescriptor([]hal.FeatureName{hal.FeatureNameTimestampQuery}, func(hal.ErrorType, string) { called = true })
	assert.Equal(t, deviceLabel, desc.Label)
	assert.Equal(t, queueLabel, desc.QueueLabel)
	assert.Equal(t, DefaultLimits(), desc.RequiredLimits)
	desc.OnUncapturedError(hal.ErrorTypeInternal, "x")
	assert.True(t, called)
}

func TestSurfaceTextureViewDescriptor(t *testing.T) {
	desc := SurfaceTextureViewDescriptor(hal.TextureFormatBGRA8Unorm)
	assert.Equal(t, hal.TextureFormatBGRA8Unorm, desc.Format)
	assert.Equal(t, uint32(0), desc.BaseMipLevel)
	assert.Equal(t, uint32(1), desc.MipLevelCount)
	assert.Equal(t, uint32(0), desc.BaseArrayLayer)
	assert.Equal(t, uint32(1), desc.ArrayLayerCount)
}

func TestAttachmentDescriptors(t *testing.T) {
	depth := DepthTextureDescriptor(640, 480, 4)
	assert.Equal(t, hal.TextureFormatDepth24Plus, depth.Format)
	assert.True(t, depth.Format.IsDepth())
	assert.Equal(t, uint32(4), depth.SampleCount)
	assert.Equal(t, hal.TextureUsageRenderAttachment, depth.Usage)

	msaa := MultisampleTextureDescriptor(640, 480, hal.TextureFormatRGBA8Unorm, 4)
	assert.Equal(t, hal.TextureFormatRGBA8Unorm, msaa.Format)
	assert.Equal(t, uint32(640), msaa.Width)
	assert.Equal(t, uint32(480), msaa.Height)
	assert.Equal(t, uint32(1), msaa.MipLevelCount)
}

func TestMSAASampleCountValid(t *testing.T) {
	for _, c := range []MSAASampleCount{MSAAOff, 2, MSAA4x, MSAA8x, MSAA16x} {
		assert.True(t, c.Valid(), c)
	}
	for _, c := range []MSAASampleCount{0, 3, 32} {
		assert.False(t, c.Valid(), c)
	}
	assert.Equal(t, hal.PresentModeFifo, presentModeFor(true))
	assert.Equal(t, hal.PresentModeImmediate, presentModeFor(false))
}

func TestInitStateStrings(t *testing.T) {
	assert.Equal(t, "device valid", InitStateDeviceValid.String())
	assert.True(t, InitStateError.IsFailure())
	assert.False(t, InitStateDeviceValid.IsFailure())
	assert.True(t, canTransition(InitStateDeviceValid, InitStateError))
	assert.False(t, canTransition(InitStateError, InitStateDeviceValid))
	assert.False(t, canTransition(InitStateNotInitialized, InitStateDeviceValid))
}
