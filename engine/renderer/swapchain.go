package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// swapchain holds the live surface configuration and the attachments sized to it.
type swapchain struct {
	width       int
	height      int
	presentMode hal.PresentMode
	configured  bool
	depth       *Attachment
	multisample *Attachment
}

func (r *renderer) Resize(width, height int) error {
	if r.disposed {
		return ErrDisposed
	}
	if r.inFrame {
		r.logger.Error("resize requested while rendering a frame", "width", width, "height", height)
		return ErrResizeDuringFrame
	}
	if width <= 0 || height <= 0 {
		r.logger.Debug("ignoring zero sized resize", "width", width, "height", height)
		return nil
	}
	if r.state.IsFailure() {
		return r.failure
	}
	if r.state != InitStateDeviceValid {
		r.pendingSize = &[2]int{width, height}
		return nil
	}

	mode := presentModeFor(r.cfg.VSync)
	if r.swap.configured && r.swap.width == width && r.swap.height == height && r.swap.presentMode == mode {
		return nil
	}
	return r.configureSwapchain(width, height, mode)
}

func (r *renderer) RequestResize(width, height int) {
	r.deferredSize = &[2]int{width, height}
}

// configureSwapchain rebuilds the surface and its attachments in a fixed order:
// depth and multisample buffers are destroyed before the surface is unconfigured, and recreated after it is configured.
func (r *renderer) configureSwapchain(width, height int, mode hal.PresentMode) error {
	if r.swap.configured {
		r.swap.depth.destroy()
		r.swap.depth = nil
		r.swap.multisample.destroy()
		r.swap.multisample = nil
		r.surface.Unconfigure()
		r.swap.configured = false
	}

	err := r.surface.Configure(r.device, hal.SurfaceConfiguration{
		Width:       uint32(width),
		Height:      uint32(height),
		Format:      r.surfaceFormat,
		Usage:       hal.TextureUsageRenderAttachment,
		PresentMode: mode,
	})
	if err != nil {
		return r.fatal(fmt.Errorf("%w: %w", ErrSurfaceConfigure, err))
	}
	r.swap.configured = true
	r.swap.width, r.swap.height, r.swap.presentMode = width, height, mode

	samples := uint32(r.cfg.SampleCount)
	r.swap.depth, err = r.createAttachment(DepthTextureDescriptor(uint32(width), uint32(height), samples))
	if err != nil {
		return r.fatal(fmt.Errorf("%w: depth buffer: %w", ErrSurfaceConfigure, err))
	}
	if samples > 1 {
		r.swap.multisample, err = r.createAttachment(MultisampleTextureDescriptor(uint32(width), uint32(height), r.surfaceFormat, samples))
		if err != nil {
			return r.fatal(fmt.Errorf("%w: multisample buffer: %w", ErrSurfaceConfigure, err))
		}
	}

	base := r.base()
	base.Format = r.surfaceFormat
	base.Width, base.Height = width, height
	base.Depth = r.swap.depth
	base.SampleCount = int(samples)
	base.Viewport = common.NewRect(width, height)
	base.Scissor = common.NewRect(width, height)

	r.logger.Info("surface configured", "width", width, "height", height, "format", r.surfaceFormat, "present_mode", mode, "samples", samples)
	return nil
}

func (r *renderer) createAttachment(desc hal.TextureDescriptor) (*Attachment, error) {
	tex, err := r.device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Destroy()
		tex.Release()
		return nil, err
	}
	return &Attachment{Texture: tex, View: view, Format: desc.Format, SampleCount: int(desc.SampleCount)}, nil
}

// fatal moves a valid device into the error state and returns err.
func (r *renderer) fatal(err error) error {
	if r.state == InitStateDeviceValid {
		r.transition(InitStateError, err)
	}
	return err
}

func (r *renderer) SetVSync(enabled bool) error {
	if r.disposed {
		return ErrDisposed
	}
	r.cfg.VSync = enabled
	if !r.swap.configured {
		return nil
	}
	if r.inFrame {
		r.deferredSize = &[2]int{r.swap.width, r.swap.height}
		return nil
	}
	return r.Resize(r.swap.width, r.swap.height)
}

func (r *renderer) VSync() bool {
	return r.cfg.VSync
}

func (r *renderer) Size() (int, int) {
	return r.swap.width, r.swap.height
}

func (r *renderer) SurfaceFormat() hal.TextureFormat {
	return r.surfaceFormat
}

func (r *renderer) DepthBuffer() *Attachment {
	return r.swap.depth
}

func (r *renderer) MultisampleBuffer() *Attachment {
	return r.swap.multisample
}

func (r *renderer) SampleCount() int {
	return r.output.SampleCount
}
