package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// RenderPassType selects which attachments a render pass writes.
type RenderPassType int

const (
	// RenderPassColorAndDepth writes the current color target and depth buffer.
	RenderPassColorAndDepth RenderPassType = iota
	// RenderPassColorOnly writes the current color target without depth.
	RenderPassColorOnly
	// RenderPassDepthOnly writes the depth buffer only, e.g. for shadow maps.
	RenderPassDepthOnly
)

// RenderPassOptions configures BeginRenderPass.
type RenderPassOptions struct {
	// Name labels the pass and names its GPU timing slot.
	Name string
	Type RenderPassType
	// ClearColor clears the color target when set; it is given in gamma space and converted to linear.
	// A nil ClearColor keeps the existing contents.
	ClearColor *common.Color
	// ClearDepth clears the depth buffer to 1.0; otherwise the existing depth is kept.
	ClearDepth bool
}

func (r *renderer) BeginRenderPass(opts RenderPassOptions) (hal.RenderPassEncoder, error) {
	if r.disposed {
		return nil, ErrDisposed
	}
	if !r.inFrame || r.encoder == nil {
		return nil, ErrNotInFrame
	}
	name := opts.Name
	if name == "" {
		name = "render pass"
	}
	out := r.output

	desc := hal.RenderPassDescriptor{Label: name}
	if opts.Type != RenderPassDepthOnly {
		color := &hal.ColorAttachment{View: out.Target, LoadOp: hal.LoadOpLoad}
		if out.SampleCount > 1 && r.swap.multisample != nil {
			color.View = r.swap.multisample.View
			color.ResolveTarget = out.Target
		}
		if opts.ClearColor != nil {
			color.LoadOp = hal.LoadOpClear
			color.ClearValue = opts.ClearColor.ToLinear()
		}
		desc.Color = color
	}
	if opts.Type != RenderPassColorOnly && out.Depth != nil {
		if desc.Color != nil && !r.depthMatchesColor(out.Depth) {
			r.logger.Debug("render pass drops a depth buffer that does not match its color target",
				"pass", name, "width", out.Width, "height", out.Height, "depthSamples", out.Depth.SampleCount)
		} else {
			depth := &hal.DepthAttachment{View: out.Depth.View, LoadOp: hal.LoadOpLoad, ClearValue: 1.0}
			if opts.ClearDepth {
				depth.LoadOp = hal.LoadOpClear
			}
			desc.Depth = depth
		}
	}
	if desc.Color == nil && desc.Depth == nil {
		return nil, fmt.Errorf("render pass %q has no attachments", name)
	}
	if r.gpuTimer.Enabled() {
		pass := r.gpuTimer.AddPass(name)
		desc.TimestampWrites = &hal.TimestampWrites{
			QuerySet:   r.gpuTimer.QuerySet(),
			BeginIndex: r.gpuTimer.StartIndex(pass),
			EndIndex:   r.gpuTimer.StopIndex(pass),
		}
	}

	pass, err := r.encoder.BeginRenderPass(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to begin render pass %q: %w", name, err)
	}
	vp := out.Viewport
	pass.SetViewport(float32(vp.X), float32(vp.Y), float32(vp.W), float32(vp.H), 0, 1)
	if out.ScissorEnabled {
		sc := out.Scissor
		pass.SetScissorRect(uint32(sc.X), uint32(sc.Y), uint32(sc.W), uint32(sc.H))
	}
	return pass, nil
}

// depthMatchesColor reports whether depth can share a pass with the current color target.
// All attachments of a pass need the same size and sample count.
func (r *renderer) depthMatchesColor(depth *Attachment) bool {
	out := r.output
	samples := 1
	if out.SampleCount > 1 && r.swap.multisample != nil {
		samples = out.SampleCount
	}
	if max(depth.SampleCount, 1) != samples {
		return false
	}
	if t := depth.Texture; t != nil && (int(t.Width()) != out.Width || int(t.Height()) != out.Height) {
		return false
	}
	return true
}

// EndRenderPass ends and releases a pass returned by BeginRenderPass.
// The pass must be released before the frame's encoder is finished.
func EndRenderPass(pass hal.RenderPassEncoder) error {
	err := pass.End()
	pass.Release()
	return err
}
