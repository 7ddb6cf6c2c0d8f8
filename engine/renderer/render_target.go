package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// Attachment is a texture owned by the renderer or the caller and used as a render pass attachment.
type Attachment struct {
	Texture     hal.Texture
	View        hal.TextureView
	Format      hal.TextureFormat
	SampleCount int
}

func (a *Attachment) destroy() {
	if a == nil {
		return
	}
	if a.View != nil {
		a.View.Release()
	}
	if a.Texture != nil {
		a.Texture.Destroy()
		a.Texture.Release()
	}
}

// RenderOutputState describes where render passes currently draw to.
// PushTargetView and PushDepthTexture return the state they replaced; handing it back to the matching pop restores it exactly.
type RenderOutputState struct {
	Target         hal.TextureView
	Format         hal.TextureFormat
	Width          int
	Height         int
	Depth          *Attachment
	Viewport       common.Rect
	Scissor        common.Rect
	ScissorEnabled bool
	SampleCount    int

	token uint64
}

// base returns the bottom of the target stack: the on-screen state that resize and frame setup update.
func (r *renderer) base() *RenderOutputState {
	if len(r.stack) > 0 {
		return &r.stack[0]
	}
	return &r.output
}

func (r *renderer) push() RenderOutputState {
	saved := r.output
	r.nextToken++
	saved.token = r.nextToken
	r.stack = append(r.stack, saved)
	return saved
}

func (r *renderer) pop(state RenderOutputState) error {
	if r.disposed {
		return ErrDisposed
	}
	n := len(r.stack)
	if n == 0 || state.token == 0 || r.stack[n-1].token != state.token {
		r.logger.Error("render target pop does not match the last push", "depth", n)
		return ErrUnpairedPop
	}
	restored := r.stack[n-1]
	restored.token = 0
	r.output = restored
	r.stack = r.stack[:n-1]
	return nil
}

// unwind restores the bottom state when pushes were left unpaired.
func (r *renderer) unwind() {
	if len(r.stack) == 0 {
		return
	}
	r.logger.Error("render target stack not empty, unwinding", "depth", len(r.stack))
	bottom := r.stack[0]
	bottom.token = 0
	r.output = bottom
	r.stack = r.stack[:0]
}

func (r *renderer) PushTargetView(view hal.TextureView, format hal.TextureFormat, width, height int, depth *Attachment) RenderOutputState {
	saved := r.push()
	r.output.Target = view
	r.output.Format = format
	r.output.Width = width
	r.output.Height = height
	r.output.SampleCount = 1
	if depth != nil {
		r.output.Depth = depth
	}
	r.output.Viewport = common.NewRect(width, height)
	r.output.Scissor = common.NewRect(width, height)
	return saved
}

func (r *renderer) PopTargetView(state RenderOutputState) error {
	return r.pop(state)
}

func (r *renderer) PushDepthTexture(depth *Attachment) RenderOutputState {
	saved := r.push()
	r.output.Depth = depth
	return saved
}

func (r *renderer) PopDepthTexture(state RenderOutputState) error {
	return r.pop(state)
}

func (r *renderer) OutputState() RenderOutputState {
	s := r.output
	s.token = 0
	return s
}

func (r *renderer) SetViewport(rect common.Rect) {
	r.output.Viewport = rect
}

func (r *renderer) Viewport() common.Rect {
	return r.output.Viewport
}

func (r *renderer) EnableScissor(enabled bool) {
	r.output.ScissorEnabled = enabled
}

func (r *renderer) ScissorEnabled() bool {
	return r.output.ScissorEnabled
}

func (r *renderer) SetScissor(rect common.Rect) error {
	if !rect.Within(r.output.Width, r.output.Height) {
		r.logger.Error("scissor rectangle out of bounds", "rect", rect, "width", r.output.Width, "height", r.output.Height)
		return fmt.Errorf("%w: %+v outside %dx%d", ErrScissorOutOfBounds, rect, r.output.Width, r.output.Height)
	}
	r.output.Scissor = rect
	return nil
}

func (r *renderer) Scissor() common.Rect {
	return r.output.Scissor
}
