package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gpu/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

func (r *renderer) RenderFrame(render func()) error {
	if r.disposed {
		return ErrDisposed
	}
	if r.inFrame {
		r.logger.Error("RenderFrame called from inside a frame")
		return ErrFrameReentered
	}
	if r.deferredSize != nil {
		size := *r.deferredSize
		r.deferredSize = nil
		if err := r.Resize(size[0], size[1]); err != nil {
			return err
		}
	}
	if r.state.IsFailure() {
		return r.failure
	}
	if r.state != InitStateDeviceValid {
		return ErrNotReady
	}
	if !r.swap.configured {
		r.logger.Debug("skipping frame, surface not configured")
		return nil
	}

	texture, status := r.surface.CurrentTexture()
	if status != hal.SurfaceStatusSuccess {
		if texture != nil {
			texture.Release()
		}
		if status.Skippable() {
			r.skipped++
			r.logger.Debug("skipping frame", "surface_status", status)
			return nil
		}
		return r.fatal(fmt.Errorf("%w: %s", ErrSurfaceAcquire, status))
	}

	view, err := texture.CreateView(SurfaceTextureViewDescriptor(texture.Format()))
	if err != nil {
		texture.Release()
		return r.fatal(fmt.Errorf("%w: view: %w", ErrSurfaceAcquire, err))
	}

	encoder, err := r.device.CreateCommandEncoder(frameLabel)
	if err != nil {
		view.Release()
		texture.Release()
		return r.fatal(fmt.Errorf("failed to create command encoder: %w", err))
	}

	if len(r.stack) > 0 {
		r.unwind()
	}
	r.output.Target = view
	r.output.Format = texture.Format()
	r.output.Width, r.output.Height = r.swap.width, r.swap.height
	r.output.Depth = r.swap.depth
	r.output.SampleCount = int(r.cfg.SampleCount)

	r.encoder = encoder
	r.inFrame = true
	r.runCallback(render)
	r.inFrame = false
	r.encoder = nil
	r.unwind()

	if r.state == InitStateError {
		encoder.Release()
		r.endFrame(view, texture)
		return r.failure
	}

	r.gpuTimer.ResolveTimestamps(encoder)

	var frameErr error
	commands, err := encoder.Finish(frameLabel)
	encoder.Release()
	if err != nil {
		frameErr = fmt.Errorf("failed to finish frame commands: %w", err)
		r.logger.Error("frame encoding failed", "error", err)
	} else {
		r.queue.Submit(commands)
		commands.Release()
		r.gpuTimer.FetchTimestamps()
	}

	r.endFrame(view, texture)
	if !r.implicitPresent() {
		r.surface.Present()
	}

	r.frameNumber++
	if r.stats.Tick() {
		r.snapshotGPUTimes()
	}
	return frameErr
}

// runCallback invokes the host callback, turning a panic into a device error so the frame's resources are still released.
func (r *renderer) runCallback(render func()) {
	if render == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("render callback panicked", "panic", rec)
			r.fatal(fmt.Errorf("render callback panic: %v", rec))
		}
	}()
	render()
}

func (r *renderer) endFrame(view hal.TextureView, texture hal.Texture) {
	r.output.Target = nil
	view.Release()
	texture.Release()
}

func (r *renderer) implicitPresent() bool {
	return r.cfg.ImplicitPresent
}

func (r *renderer) snapshotGPUTimes() {
	for pass := 0; pass < profiler.MaxPasses; pass++ {
		r.gpuTime[pass] = r.gpuTimer.AverageGPUTime(pass)
	}
}

func (r *renderer) CommandEncoder() hal.CommandEncoder {
	return r.encoder
}

func (r *renderer) AverageGPUTime(pass int) float32 {
	if pass < 0 || pass >= profiler.MaxPasses {
		return 0
	}
	return r.gpuTime[pass]
}

func (r *renderer) PassName(pass int) string {
	if r.gpuTimer == nil {
		return ""
	}
	return r.gpuTimer.PassName(pass)
}

func (r *renderer) NumPasses() int {
	if r.gpuTimer == nil {
		return 0
	}
	return r.gpuTimer.NumPasses()
}

func (r *renderer) FramesPerSecond() int {
	return r.stats.FramesPerSecond()
}

func (r *renderer) FrameNumber() uint64 {
	return r.frameNumber
}

func (r *renderer) SkippedFrames() uint64 {
	return r.skipped
}

func (r *renderer) GPUTimer() *profiler.GPUTimer {
	return r.gpuTimer
}

// Dispose releases every GPU resource in reverse creation order.
func (r *renderer) Dispose() error {
	if r.disposed {
		return ErrDisposed
	}
	if r.inFrame {
		return fmt.Errorf("dispose during frame: %w", ErrFrameReentered)
	}
	r.swap.multisample.destroy()
	r.swap.multisample = nil
	r.swap.depth.destroy()
	r.swap.depth = nil
	if r.swap.configured {
		r.surface.Unconfigure()
		r.swap.configured = false
	}
	if r.gpuTimer != nil {
		r.gpuTimer.Dispose()
	}
	if r.queue != nil {
		r.queue.Release()
		r.queue = nil
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	if r.adapter != nil {
		r.adapter.Release()
		r.adapter = nil
	}
	if r.surface != nil {
		r.surface.Release()
		r.surface = nil
	}
	if r.instance != nil {
		r.instance.Release()
		r.instance = nil
	}

	r.stack = nil
	r.output = RenderOutputState{}
	r.disposed = true
	r.logger.Info("renderer disposed", "frames", r.frameNumber)
	return nil
}
