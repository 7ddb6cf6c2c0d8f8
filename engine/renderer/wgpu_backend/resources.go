package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/cogentcore/webgpu/wgpu"
)

type texture struct {
	raw  *wgpu.Texture
	desc hal.TextureDescriptor
}

var _ hal.Texture = &texture{}

func (t *texture) Format() hal.TextureFormat {
	return t.desc.Format
}

func (t *texture) Width() uint32 {
	return t.desc.Width
}

func (t *texture) Height() uint32 {
	return t.desc.Height
}

func (t *texture) SampleCount() uint32 {
	return max(t.desc.SampleCount, 1)
}

func (t *texture) CreateView(descriptor *hal.TextureViewDescriptor) (hal.TextureView, error) {
	var desc *wgpu.TextureViewDescriptor
	if descriptor != nil {
		desc = &wgpu.TextureViewDescriptor{
			Label:           descriptor.Label,
			Format:          convertTextureFormat(descriptor.Format),
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    descriptor.BaseMipLevel,
			MipLevelCount:   descriptor.MipLevelCount,
			BaseArrayLayer:  descriptor.BaseArrayLayer,
			ArrayLayerCount: descriptor.ArrayLayerCount,
			Aspect:          wgpu.TextureAspectAll,
		}
	}
	v, err := t.raw.CreateView(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create view of %q: %w", t.desc.Label, err)
	}
	return &textureView{raw: v}, nil
}

func (t *texture) Destroy() {
	t.raw.Destroy()
}

func (t *texture) Release() {
	t.raw.Release()
}

// RawTexture returns the native texture behind a texture created by this package, or nil.
func RawTexture(t hal.Texture) *wgpu.Texture {
	if tt, ok := t.(*texture); ok {
		return tt.raw
	}
	return nil
}

type textureView struct {
	raw *wgpu.TextureView
}

func (v *textureView) Release() {
	v.raw.Release()
}

// WrapTextureView adapts a native view, e.g. of a render-to-texture target, for Renderer.PushTargetView.
func WrapTextureView(view *wgpu.TextureView) hal.TextureView {
	return &textureView{raw: view}
}

type commandEncoder struct {
	raw    *wgpu.CommandEncoder
	device *device
}

var _ hal.CommandEncoder = &commandEncoder{}

// passTimestamps are the query slots a timed pass writes around itself.
type passTimestamps struct {
	querySet   *wgpu.QuerySet
	begin, end uint32
}

// renderPassDescriptor converts a hal pass descriptor. The binding has no per-pass timestamp writes,
// so requested timestamps are returned separately and written on the encoder around the pass.
func renderPassDescriptor(descriptor hal.RenderPassDescriptor) (*wgpu.RenderPassDescriptor, *passTimestamps, error) {
	desc := &wgpu.RenderPassDescriptor{Label: descriptor.Label}
	if c := descriptor.Color; c != nil {
		view, ok := c.View.(*textureView)
		if !ok || view == nil {
			return nil, nil, errors.New("color attachment has no view")
		}
		att := wgpu.RenderPassColorAttachment{
			View:    view.raw,
			LoadOp:  convertLoadOp(c.LoadOp),
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: c.ClearValue.R, G: c.ClearValue.G, B: c.ClearValue.B, A: c.ClearValue.A,
			},
		}
		if rt, ok := c.ResolveTarget.(*textureView); ok && rt != nil {
			// multisampled contents are only needed until resolved
			att.ResolveTarget = rt.raw
			att.StoreOp = wgpu.StoreOpDiscard
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{att}
	}
	if d := descriptor.Depth; d != nil {
		view, ok := d.View.(*textureView)
		if !ok || view == nil {
			return nil, nil, errors.New("depth attachment has no view")
		}
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            view.raw,
			DepthLoadOp:     convertLoadOp(d.LoadOp),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: d.ClearValue,
		}
	}
	var ts *passTimestamps
	if tw := descriptor.TimestampWrites; tw != nil {
		qs, ok := tw.QuerySet.(*querySet)
		if !ok || qs == nil {
			return nil, nil, errors.New("timestamp writes have no query set")
		}
		ts = &passTimestamps{querySet: qs.raw, begin: tw.BeginIndex, end: tw.EndIndex}
	}
	return desc, ts, nil
}

func (e *commandEncoder) BeginRenderPass(descriptor hal.RenderPassDescriptor) (hal.RenderPassEncoder, error) {
	desc, ts, err := renderPassDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	if ts != nil {
		if err := e.raw.WriteTimestamp(ts.querySet, ts.begin); err != nil {
			return nil, e.device.report(fmt.Errorf("failed to write begin timestamp of %q: %w", descriptor.Label, err))
		}
	}
	return &renderPass{raw: e.raw.BeginRenderPass(desc), encoder: e, timestamps: ts}, nil
}

func (e *commandEncoder) ResolveQuerySet(qs hal.QuerySet, firstQuery, queryCount uint32, destination hal.Buffer, destinationOffset uint64) error {
	if err := e.raw.ResolveQuerySet(qs.(*querySet).raw, firstQuery, queryCount, destination.(*buffer).raw, destinationOffset); err != nil {
		return e.device.report(fmt.Errorf("failed to resolve query set: %w", err))
	}
	return nil
}

func (e *commandEncoder) CopyBufferToBuffer(source hal.Buffer, sourceOffset uint64, destination hal.Buffer, destinationOffset, size uint64) error {
	if err := e.raw.CopyBufferToBuffer(source.(*buffer).raw, sourceOffset, destination.(*buffer).raw, destinationOffset, size); err != nil {
		return e.device.report(fmt.Errorf("failed to copy buffer: %w", err))
	}
	return nil
}

func (e *commandEncoder) Finish(label string) (hal.CommandBuffer, error) {
	cb, err := e.raw.Finish(&wgpu.CommandBufferDescriptor{Label: label})
	if err != nil {
		return nil, e.device.report(fmt.Errorf("failed to finish command encoder: %w", err))
	}
	return &commandBuffer{raw: cb}, nil
}

func (e *commandEncoder) Release() {
	e.raw.Release()
}

// RawCommandEncoder returns the native encoder behind a hal.CommandEncoder created by this package, or nil.
func RawCommandEncoder(e hal.CommandEncoder) *wgpu.CommandEncoder {
	if ce, ok := e.(*commandEncoder); ok {
		return ce.raw
	}
	return nil
}

type renderPass struct {
	raw        *wgpu.RenderPassEncoder
	encoder    *commandEncoder
	timestamps *passTimestamps
}

func (p *renderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.raw.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *renderPass) SetScissorRect(x, y, width, height uint32) {
	p.raw.SetScissorRect(x, y, width, height)
}

// End closes the pass and, for a timed pass, writes its end timestamp on the encoder.
func (p *renderPass) End() error {
	if err := p.raw.End(); err != nil {
		return p.encoder.device.report(fmt.Errorf("failed to end render pass: %w", err))
	}
	if ts := p.timestamps; ts != nil {
		if err := p.encoder.raw.WriteTimestamp(ts.querySet, ts.end); err != nil {
			return p.encoder.device.report(fmt.Errorf("failed to write end timestamp: %w", err))
		}
	}
	return nil
}

func (p *renderPass) Release() {
	p.raw.Release()
}

// RawRenderPass returns the native pass encoder so callers can set pipelines and issue draws.
func RawRenderPass(p hal.RenderPassEncoder) *wgpu.RenderPassEncoder {
	if rp, ok := p.(*renderPass); ok {
		return rp.raw
	}
	return nil
}

type commandBuffer struct {
	raw *wgpu.CommandBuffer
}

func (c *commandBuffer) Release() {
	c.raw.Release()
}

type querySet struct {
	raw *wgpu.QuerySet
}

// Destroy is a no-op: the binding frees a query set only on Release.
func (q *querySet) Destroy() {}

func (q *querySet) Release() {
	q.raw.Release()
}

type buffer struct {
	raw  *wgpu.Buffer
	size uint64
}

var _ hal.Buffer = &buffer{}

func (b *buffer) Size() uint64 {
	return b.size
}

func (b *buffer) MapAsync(mode hal.MapMode, offset, size uint64, callback hal.MapCallback) error {
	wmode := wgpu.MapModeRead
	if mode == hal.MapModeWrite {
		wmode = wgpu.MapModeWrite
	}
	return b.raw.MapAsync(wmode, offset, size, func(status wgpu.BufferMapAsyncStatus) {
		callback(convertMapStatus(status))
	})
}

func (b *buffer) MappedRange(offset, size uint64) []byte {
	return b.raw.GetMappedRange(uint(offset), uint(size))
}

func (b *buffer) Unmap() {
	b.raw.Unmap()
}

func (b *buffer) Destroy() {
	b.raw.Destroy()
}

func (b *buffer) Release() {
	b.raw.Release()
}
