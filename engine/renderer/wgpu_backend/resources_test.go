package wgpu_backend

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPassDescriptorSplitsTimestamps(t *testing.T) {
	color := &textureView{}
	resolve := &textureView{}
	depth := &textureView{}
	qs := &querySet{}

	desc, ts, err := renderPassDescriptor(hal.RenderPassDescriptor{
		Label: "main",
		Color: &hal.ColorAttachment{
			View:          color,
			ResolveTarget: resolve,
			LoadOp:        hal.LoadOpClear,
			ClearValue:    common.Color{R: 0.25, A: 1},
		},
		Depth:           &hal.DepthAttachment{View: depth, LoadOp: hal.LoadOpLoad, ClearValue: 1},
		TimestampWrites: &hal.TimestampWrites{QuerySet: qs, BeginIndex: 4, EndIndex: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, "main", desc.Label)
	require.Len(t, desc.ColorAttachments, 1)
	att := desc.ColorAttachments[0]
	assert.Equal(t, wgpu.LoadOpClear, att.LoadOp)
	assert.Equal(t, wgpu.StoreOpDiscard, att.StoreOp, "resolved multisampled contents are discarded")
	assert.Equal(t, 0.25, att.ClearValue.R)
	require.NotNil(t, desc.DepthStencilAttachment)
	assert.Equal(t, wgpu.LoadOpLoad, desc.DepthStencilAttachment.DepthLoadOp)
	assert.Equal(t, float32(1), desc.DepthStencilAttachment.DepthClearValue)

	require.NotNil(t, ts)
	assert.Equal(t, uint32(4), ts.begin)
	assert.Equal(t, uint32(5), ts.end)
}

func TestRenderPassDescriptorWithoutTimestamps(t *testing.T) {
	desc, ts, err := renderPassDescriptor(hal.RenderPassDescriptor{
		Color: &hal.ColorAttachment{View: &textureView{}},
	})
	require.NoError(t, err)
	assert.Nil(t, ts)
	assert.Nil(t, desc.DepthStencilAttachment)
	assert.Equal(t, wgpu.StoreOpStore, desc.ColorAttachments[0].StoreOp)
}

func TestRenderPassDescriptorRejectsForeignResources(t *testing.T) {
	_, _, err := renderPassDescriptor(hal.RenderPassDescriptor{Color: &hal.ColorAttachment{}})
	assert.Error(t, err)

	_, _, err = renderPassDescriptor(hal.RenderPassDescriptor{Depth: &hal.DepthAttachment{}})
	assert.Error(t, err)

	_, _, err = renderPassDescriptor(hal.RenderPassDescriptor{
		Color:           &hal.ColorAttachment{View: &textureView{}},
		TimestampWrites: &hal.TimestampWrites{BeginIndex: 0, EndIndex: 1},
	})
	assert.Error(t, err)
}

func TestDeviceReportForwardsErrors(t *testing.T) {
	var gotType hal.ErrorType
	var gotMsg string
	calls := 0
	d := &device{onError: func(typ hal.ErrorType, message string) {
		calls++
		gotType, gotMsg = typ, message
	}}

	err := d.report(errors.New("failed to resolve query set: out of range"))
	assert.EqualError(t, err, "failed to resolve query set: out of range")
	assert.Equal(t, 1, calls)
	assert.Equal(t, hal.ErrorTypeValidation, gotType)
	assert.Equal(t, "failed to resolve query set: out of range", gotMsg)

	assert.NoError(t, d.report(nil))
	assert.Equal(t, 1, calls, "nil errors are not reported")

	assert.Error(t, (&device{}).report(errors.New("no handler")))
}

func TestSurfaceTextureDescriptorUsesNativeTexture(t *testing.T) {
	config := hal.SurfaceConfiguration{
		Format: hal.TextureFormatBGRA8UnormSrgb,
		Usage:  hal.TextureUsageRenderAttachment,
		Width:  800,
		Height: 600,
	}

	desc := surfaceTextureDescriptor(wgpu.TextureFormatRGBA8Unorm, 1024, 768, 1, config)
	assert.Equal(t, hal.TextureFormatRGBA8Unorm, desc.Format, "the acquired format wins over the configured one")
	assert.Equal(t, uint32(1024), desc.Width)
	assert.Equal(t, uint32(768), desc.Height)
	assert.Equal(t, uint32(1), desc.SampleCount)
	assert.Equal(t, hal.TextureUsageRenderAttachment, desc.Usage)

	desc = surfaceTextureDescriptor(wgpu.TextureFormatR8Unorm, 800, 600, 0, config)
	assert.Equal(t, hal.TextureFormatBGRA8UnormSrgb, desc.Format, "unknown formats fall back to the configuration")
	assert.Equal(t, uint32(1), desc.SampleCount)
}
