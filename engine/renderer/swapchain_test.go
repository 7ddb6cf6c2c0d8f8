package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeConfiguresSurfaceAndBuffers(t *testing.T) {
	r, drv := newReadyRenderer(t)
	surface := drv.Instance.Surface

	assert.True(t, surface.Configured)
	assert.Equal(t, uint32(800), surface.Config.Width)
	assert.Equal(t, uint32(600), surface.Config.Height)
	assert.Equal(t, hal.TextureFormatBGRA8Unorm, surface.Config.Format)
	assert.Equal(t, hal.PresentModeFifo, surface.Config.PresentMode)
	assert.Equal(t, hal.TextureUsageRenderAttachment, surface.Config.Usage)

	depth := r.DepthBuffer()
	require.NotNil(t, depth)
	assert.Equal(t, hal.TextureFormatDepth24Plus, depth.Format)
	assert.Equal(t, 4, depth.SampleCount)

	msaa := r.MultisampleBuffer()
	require.NotNil(t, msaa)
	assert.Equal(t, hal.TextureFormatBGRA8Unorm, msaa.Format)
	assert.Equal(t, 4, msaa.SampleCount)
	assert.Equal(t, uint32(800), msaa.Texture.Width())

	assert.Equal(t, common.NewRect(800, 600), r.Viewport())
	assert.Equal(t, common.NewRect(800, 600), r.Scissor())
	assert.Equal(t, 4, r.SampleCount())
}

func TestResizeOrder(t *testing.T) {
	r, drv := newReadyRenderer(t)
	rec := drv.Recorder
	rec.Reset()

	require.NoError(t, r.Resize(1024, 768))
	assert.Equal(t, []string{
		"view.release depth buffer",
		"texture.destroy depth buffer",
		"texture.release depth buffer",
		"view.release multisample buffer",
		"texture.destroy multisample buffer",
		"texture.release multisample buffer",
		"surface.unconfigure",
		"surface.configure",
		"device.createTexture depth buffer",
		"texture.createView depth buffer",
		"device.createTexture multisample buffer",
		"texture.createView multisample buffer",
	}, rec.Calls)

	w, h := r.Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)
	assert.Equal(t, common.NewRect(1024, 768), r.Viewport())
	assert.Equal(t, common.NewRect(1024, 768), r.Scissor())
	assert.Equal(t, uint32(1024), r.DepthBuffer().Texture.Width())
}

func TestResizeWithoutMSAA(t *testing.T) {
	r, drv := newReadyRenderer(t, WithMSAA(MSAAOff))
	assert.Nil(t, r.MultisampleBuffer())
	assert.Len(t, drv.Instance.Device.TexturesLabelled(multisampleLabel), 0)
	assert.Equal(t, 1, r.DepthBuffer().SampleCount)
	assert.Equal(t, 1, r.SampleCount())
}

func TestResizeZeroIsIgnored(t *testing.T) {
	r, drv := newReadyRenderer(t)
	rec := drv.Recorder
	rec.Reset()

	require.NoError(t, r.Resize(0, 600))
	require.NoError(t, r.Resize(800, 0))
	require.NoError(t, r.Resize(-1, -1))
	assert.Empty(t, rec.Calls)
	w, h := r.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestResizeSameSizeIsIgnored(t *testing.T) {
	r, drv := newReadyRenderer(t)
	drv.Recorder.Reset()

	require.NoError(t, r.Resize(800, 600))
	assert.Empty(t, drv.Recorder.Calls)
	assert.Equal(t, 1, drv.Instance.Surface.ConfigureCount)
}

func TestResizeBeforeReadyIsApplied(t *testing.T) {
	r, drv := newTestRenderer(t)
	require.NoError(t, r.Resize(320, 240))
	assert.False(t, drv.Instance.Surface.Configured)

	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	require.NoError(t, r.WaitReady(t.Context()))

	assert.True(t, drv.Instance.Surface.Configured)
	w, h := r.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}

func TestResizeDuringFrameIsRejected(t *testing.T) {
	r, drv := newReadyRenderer(t)
	var resizeErr error
	require.NoError(t, r.RenderFrame(func() {
		resizeErr = r.Resize(1024, 768)
	}))
	assert.ErrorIs(t, resizeErr, ErrResizeDuringFrame)
	assert.Equal(t, 1, drv.Instance.Surface.ConfigureCount)
}

func TestRequestResizeAppliesOnNextFrame(t *testing.T) {
	r, drv := newReadyRenderer(t)
	r.RequestResize(1280, 720)
	assert.Equal(t, 1, drv.Instance.Surface.ConfigureCount)

	var target RenderOutputState
	require.NoError(t, r.RenderFrame(func() {
		target = r.OutputState()
	}))
	assert.Equal(t, 2, drv.Instance.Surface.ConfigureCount)
	assert.Equal(t, 1280, target.Width)
	assert.Equal(t, 720, target.Height)
}

func TestSetVSync(t *testing.T) {
	r, drv := newReadyRenderer(t)
	surface := drv.Instance.Surface

	require.NoError(t, r.SetVSync(false))
	assert.False(t, r.VSync())
	assert.Equal(t, hal.PresentModeImmediate, surface.Config.PresentMode)
	assert.Equal(t, 2, surface.ConfigureCount)

	require.NoError(t, r.SetVSync(true))
	assert.Equal(t, hal.PresentModeFifo, surface.Config.PresentMode)
	assert.Equal(t, 3, surface.ConfigureCount)
}

func TestSetVSyncBeforeConfigure(t *testing.T) {
	r, drv := newTestRenderer(t, WithVSync(true))
	require.NoError(t, r.SetVSync(false))
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	require.NoError(t, r.WaitReady(t.Context()))
	require.NoError(t, r.Resize(800, 600))
	assert.Equal(t, hal.PresentModeImmediate, drv.Instance.Surface.Config.PresentMode)
}

func TestConfigureFailureIsFatal(t *testing.T) {
	r, drv := newTestRenderer(t)
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	require.NoError(t, r.WaitReady(t.Context()))
	drv.Instance.Surface.ConfigureErr = errors.New("surface gone")

	err := r.Resize(800, 600)
	assert.ErrorIs(t, err, ErrSurfaceConfigure)
	assert.Equal(t, InitStateError, r.State())
}

func TestDepthBufferFailureIsFatal(t *testing.T) {
	r, drv := newTestRenderer(t)
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	require.NoError(t, r.WaitReady(t.Context()))
	drv.Instance.Device.TextureErr = errors.New("out of memory")

	assert.ErrorIs(t, r.Resize(800, 600), ErrSurfaceConfigure)
	assert.True(t, r.IsError())
}
