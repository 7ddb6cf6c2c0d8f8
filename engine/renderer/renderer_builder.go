package renderer

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-gpu/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithConfig replaces the whole configuration. Options given after it still apply on top.
//
// Parameters:
//   - cfg: the configuration, typically from LoadConfig
//
// Returns:
//   - RendererBuilderOption: a function that applies the configuration to a renderer
func WithConfig(cfg Config) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg = cfg
	}
}

// WithSize sets the initial surface size used by Open.
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.Width = width
		r.cfg.Height = height
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.SampleCount = count
	}
}

// WithVSync selects vsync presentation (Fifo) when true, or immediate presentation when false.
//
// Parameters:
//   - enabled: whether to wait for vertical blank
//
// Returns:
//   - RendererBuilderOption: a function that applies the vsync option to a renderer
func WithVSync(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.VSync = enabled
	}
}

// WithGPUTiming enables timestamp queries around every pass started through BeginRenderPass.
// Timing silently stays off when the adapter lacks timestamp query support.
func WithGPUTiming(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.GPUTiming = enabled
	}
}

// WithBackend sets the native graphics API requested by Open.
func WithBackend(backend hal.BackendType) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.Backend = backend
	}
}

// WithPowerPreference sets the adapter power preference requested by Open.
func WithPowerPreference(power hal.PowerPreference) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.PowerPreference = power
	}
}

// WithForceSoftwareRenderer forces the use of a fallback (software) adapter instead of a hardware GPU.
// Useful on machines without a working GPU driver.
//
// Returns:
//   - RendererBuilderOption: a function that applies the fallback adapter option to a renderer
func WithForceSoftwareRenderer() RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.ForceFallbackAdapter = true
	}
}

// WithReadyWait bounds WaitReady to the given number of polls separated by interval.
//
// Parameters:
//   - retries: the maximum number of event pumps
//   - interval: the pause between two pumps
//
// Returns:
//   - RendererBuilderOption: a function that applies the wait bounds to a renderer
func WithReadyWait(retries int, interval time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.ReadyRetries = retries
		r.cfg.ReadyPollInterval = Duration(interval)
	}
}

// WithImplicitPresent skips the explicit Present call at the end of each frame.
func WithImplicitPresent(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.ImplicitPresent = enabled
	}
}

// WithLogger sets the logger used by the renderer. Defaults to common.Logger().
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = logger
	}
}

// WithProfilerOptions configures the frame profiler that drives the once per interval GPU time snapshot.
func WithProfilerOptions(options ...profiler.ProfilerBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.statsOpts = append(r.statsOpts, options...)
	}
}
