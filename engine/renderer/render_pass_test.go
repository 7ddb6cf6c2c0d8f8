package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal/hal_fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginRenderPassOutsideFrame(t *testing.T) {
	r, _ := newReadyRenderer(t)
	_, err := r.BeginRenderPass(RenderPassOptions{Name: "main"})
	assert.ErrorIs(t, err, ErrNotInFrame)
}

func TestBeginRenderPassMSAAAttachments(t *testing.T) {
	r, drv := newReadyRenderer(t)

	require.NoError(t, r.RenderFrame(func() {
		drawPass(t, r, "main")
	}))
	enc := drv.Instance.Device.LastEncoder()
	require.Len(t, enc.Passes, 1)
	desc := enc.Passes[0].Desc

	require.NotNil(t, desc.Color)
	assert.Same(t, r.MultisampleBuffer().View.(*hal_fake.TextureView), desc.Color.View.(*hal_fake.TextureView))
	surfaceView := drv.Instance.Surface.Acquired[0].Views[0]
	assert.Same(t, surfaceView, desc.Color.ResolveTarget.(*hal_fake.TextureView))
	assert.Equal(t, surfaceViewLabel, surfaceView.Desc.Label)
	assert.Equal(t, hal.LoadOpClear, desc.Color.LoadOp)
	assert.InDelta(t, 0.01002, desc.Color.ClearValue.R, 0.0001, "clear color is linearized")
	assert.Equal(t, 1.0, desc.Color.ClearValue.A)

	require.NotNil(t, desc.Depth)
	assert.Same(t, r.DepthBuffer().View.(*hal_fake.TextureView), desc.Depth.View.(*hal_fake.TextureView))
	assert.Equal(t, hal.LoadOpClear, desc.Depth.LoadOp)
	assert.Equal(t, float32(1.0), desc.Depth.ClearValue)
	assert.Nil(t, desc.TimestampWrites)

	pass := enc.Passes[0]
	assert.True(t, pass.Ended)
	assert.True(t, pass.Released)
	assert.Equal(t, [6]float32{0, 0, 800, 600, 0, 1}, pass.Viewport)
	assert.False(t, pass.ScissorSet)
}

func TestBeginRenderPassWithoutMSAA(t *testing.T) {
	r, drv := newReadyRenderer(t, WithMSAA(MSAAOff))

	require.NoError(t, r.RenderFrame(func() {
		pass, err := r.BeginRenderPass(RenderPassOptions{Name: "main"})
		require.NoError(t, err)
		require.NoError(t, EndRenderPass(pass))
	}))
	desc := drv.Instance.Device.LastEncoder().Passes[0].Desc
	assert.Same(t, drv.Instance.Surface.Acquired[0].Views[0], desc.Color.View.(*hal_fake.TextureView))
	assert.Nil(t, desc.Color.ResolveTarget)
	assert.Equal(t, hal.LoadOpLoad, desc.Color.LoadOp)
	assert.Equal(t, hal.LoadOpLoad, desc.Depth.LoadOp)
}

func TestBeginRenderPassTypes(t *testing.T) {
	r, drv := newReadyRenderer(t)

	require.NoError(t, r.RenderFrame(func() {
		for _, typ := range []RenderPassType{RenderPassColorOnly, RenderPassDepthOnly} {
			pass, err := r.BeginRenderPass(RenderPassOptions{Type: typ})
			require.NoError(t, err)
			require.NoError(t, EndRenderPass(pass))
		}
	}))
	passes := drv.Instance.Device.LastEncoder().Passes
	require.Len(t, passes, 2)
	assert.NotNil(t, passes[0].Desc.Color)
	assert.Nil(t, passes[0].Desc.Depth)
	assert.Nil(t, passes[1].Desc.Color)
	assert.NotNil(t, passes[1].Desc.Depth)
	assert.Equal(t, "render pass", passes[0].Desc.Label)
}

func TestBeginRenderPassDepthOnlyWithoutDepth(t *testing.T) {
	r, _ := newReadyRenderer(t)

	require.NoError(t, r.RenderFrame(func() {
		saved := r.PushDepthTexture(nil)
		_, err := r.BeginRenderPass(RenderPassOptions{Type: RenderPassDepthOnly})
		assert.Error(t, err)
		require.NoError(t, r.PopDepthTexture(saved))
	}))
}

func TestBeginRenderPassTimestampWrites(t *testing.T) {
	r, drv := newReadyRenderer(t, WithGPUTiming(true))

	require.NoError(t, r.RenderFrame(func() {
		drawPass(t, r, "shadow")
		drawPass(t, r, "main")
	}))
	passes := drv.Instance.Device.LastEncoder().Passes
	require.Len(t, passes, 2)
	for i, pass := range passes {
		tw := pass.Desc.TimestampWrites
		require.NotNil(t, tw)
		assert.Same(t, drv.Instance.Device.QuerySets[0], tw.QuerySet.(*hal_fake.QuerySet))
		assert.Equal(t, uint32(2*i), tw.BeginIndex)
		assert.Equal(t, uint32(2*i+1), tw.EndIndex)
	}
	assert.Equal(t, "shadow", r.PassName(0))
	assert.Equal(t, "main", r.PassName(1))
	assert.Equal(t, 2, r.NumPasses())

	resolves := drv.Instance.Device.LastEncoder().Resolves
	require.Len(t, resolves, 1)
	assert.Equal(t, uint32(4), resolves[0].QueryCount)
}

func TestBeginRenderPassTimingOverflow(t *testing.T) {
	r, drv := newReadyRenderer(t, WithGPUTiming(true))

	require.NoError(t, r.RenderFrame(func() {
		for i := 0; i < profiler.MaxPasses+3; i++ {
			drawPass(t, r, "pass")
		}
	}))
	passes := drv.Instance.Device.LastEncoder().Passes
	last := passes[len(passes)-1].Desc.TimestampWrites
	assert.Equal(t, uint32(2*(profiler.MaxPasses-1)), last.BeginIndex)
	assert.Equal(t, 3, r.GPUTimer().Overflows())
	assert.Equal(t, profiler.MaxPasses, r.NumPasses())
}

func TestClearColorIsLinearized(t *testing.T) {
	c := common.Color{R: 1, G: 0.5, B: 0, A: 0.5}
	lin := c.ToLinear()
	assert.InDelta(t, 1.0, lin.R, 1e-9)
	assert.InDelta(t, 0.21404, lin.G, 1e-4)
	assert.InDelta(t, 0.0, lin.B, 1e-9)
	assert.Equal(t, 0.5, lin.A)
}
