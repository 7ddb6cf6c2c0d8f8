package renderer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	cfg    Config
	logger *slog.Logger
	driver hal.Driver

	state           InitState
	failure         error
	listeners       []func(from, to InitState)
	timingSupported bool

	instance      hal.Instance
	surface       hal.Surface
	adapter       hal.Adapter
	device        hal.Device
	queue         hal.Queue
	surfaceFormat hal.TextureFormat

	swap         swapchain
	pendingSize  *[2]int
	deferredSize *[2]int

	output    RenderOutputState
	stack     []RenderOutputState
	nextToken uint64

	encoder hal.CommandEncoder
	inFrame bool

	gpuTimer    *profiler.GPUTimer
	stats       *profiler.Profiler
	statsOpts   []profiler.ProfilerBuilderOption
	gpuTime     [profiler.MaxPasses]float32
	frameNumber uint64
	skipped     uint64

	disposed bool
}

// Renderer owns the GPU context of one window: device negotiation, the surface and its attachments,
// the per-frame acquire/encode/submit/present cycle, the render target stack and GPU pass timing.
//
// A Renderer is not safe for concurrent use. All calls, including PumpEvents, must come from the thread that drives the frame loop.
type Renderer interface {
	// Initialize creates the instance and surface and requests an adapter.
	// Negotiation continues asynchronously while PumpEvents is called.
	//
	// Parameters:
	//   - backend: the requested native graphics API
	//   - power: the adapter power preference
	//
	// Returns:
	//   - error: ErrInstanceInvalid if the instance or surface could not be created
	Initialize(backend hal.BackendType, power hal.PowerPreference) error

	// PumpEvents delivers pending asynchronous completions. It must be called at least once per host tick.
	//
	// Returns:
	//   - error: ErrDeviceError once the device has reported an uncaptured error
	PumpEvents() error

	// WaitReady pumps events until the device is ready, negotiation fails, or the configured number of polls is exhausted.
	//
	// Parameters:
	//   - ctx: cancels the wait early
	//
	// Returns:
	//   - error: nil when ready, the negotiation failure, ErrReadyTimeout, or the context error
	WaitReady(ctx context.Context) error

	// Subscribe registers a listener called on every init state transition.
	//
	// Parameters:
	//   - fn: the listener, receiving the previous and the new state
	Subscribe(fn func(from, to InitState))

	// State returns the current init state.
	State() InitState

	// IsReady reports whether the device is valid and frames can be rendered.
	IsReady() bool

	// IsError reports whether negotiation failed or the device reported an error.
	IsError() bool

	// Resize reconfigures the surface and recreates the depth and multisample buffers.
	// A zero area is ignored, as is a size and present mode equal to the live configuration.
	// Before the device is ready the size is remembered and applied once it is.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	//
	// Returns:
	//   - error: ErrResizeDuringFrame inside RenderFrame, or ErrSurfaceConfigure when the surface cannot be rebuilt
	Resize(width, height int) error

	// RequestResize records a size to apply at the start of the next RenderFrame.
	// Window callbacks should use this instead of Resize.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	RequestResize(width, height int)

	// RenderFrame acquires the next surface texture, calls render to encode passes, then resolves GPU timestamps,
	// submits, requests the timestamp read-back and presents.
	// Frames whose surface is outdated or lost are skipped without error.
	//
	// Parameters:
	//   - render: the host callback; use CommandEncoder and BeginRenderPass inside it
	//
	// Returns:
	//   - error: ErrNotReady, ErrSurfaceAcquire, ErrDeviceError or an encoding error
	RenderFrame(render func()) error

	// CommandEncoder returns the encoder of the frame being rendered, or nil outside RenderFrame.
	CommandEncoder() hal.CommandEncoder

	// BeginRenderPass starts a pass on the current render target using the current viewport and scissor.
	// When GPU timing is enabled the pass is timed under opts.Name. End it with EndRenderPass.
	//
	// Parameters:
	//   - opts: the pass configuration
	//
	// Returns:
	//   - hal.RenderPassEncoder: the pass encoder
	//   - error: ErrNotInFrame outside RenderFrame, or an error if the pass has no attachment
	BeginRenderPass(opts RenderPassOptions) (hal.RenderPassEncoder, error)

	// PushTargetView redirects rendering to an off-screen view. Multisampling is off for the pushed target,
	// viewport and scissor cover it fully, and depth is replaced when depth is not nil.
	//
	// Parameters:
	//   - view: the color target
	//   - format: the format of view
	//   - width: the target width in pixels
	//   - height: the target height in pixels
	//   - depth: an optional depth attachment for the target
	//
	// Returns:
	//   - RenderOutputState: the replaced state, to be passed to PopTargetView
	PushTargetView(view hal.TextureView, format hal.TextureFormat, width, height int, depth *Attachment) RenderOutputState

	// PopTargetView restores the state returned by the matching PushTargetView.
	//
	// Returns:
	//   - error: ErrUnpairedPop if state is not the most recent push
	PopTargetView(state RenderOutputState) error

	// PushDepthTexture replaces only the depth attachment.
	//
	// Returns:
	//   - RenderOutputState: the replaced state, to be passed to PopDepthTexture
	PushDepthTexture(depth *Attachment) RenderOutputState

	// PopDepthTexture restores the state returned by the matching PushDepthTexture.
	PopDepthTexture(state RenderOutputState) error

	// OutputState returns a snapshot of the current render output state.
	OutputState() RenderOutputState

	SetViewport(rect common.Rect)
	Viewport() common.Rect

	// EnableScissor toggles whether passes apply the scissor rectangle.
	EnableScissor(enabled bool)
	ScissorEnabled() bool

	// SetScissor sets the scissor rectangle.
	//
	// Returns:
	//   - error: ErrScissorOutOfBounds if rect does not fit inside the current render target; the scissor is left unchanged
	SetScissor(rect common.Rect) error
	Scissor() common.Rect

	// SetVSync switches between Fifo and Immediate presentation, reconfiguring the surface.
	SetVSync(enabled bool) error
	VSync() bool

	// Size returns the configured surface size.
	Size() (width, height int)

	SampleCount() int
	SurfaceFormat() hal.TextureFormat
	DepthBuffer() *Attachment
	MultisampleBuffer() *Attachment
	Device() hal.Device
	Queue() hal.Queue
	GPUTimer() *profiler.GPUTimer

	// AverageGPUTime returns the per-pass GPU time in microseconds sampled over the last full second.
	AverageGPUTime(pass int) float32
	PassName(pass int) string
	NumPasses() int

	FramesPerSecond() int
	FrameNumber() uint64
	SkippedFrames() uint64

	// Dispose releases every GPU resource in reverse creation order. Later calls return ErrDisposed.
	Dispose() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on the given driver. No GPU object is created until Initialize.
//
// Parameters:
//   - driver: the graphics API driver
//   - options: variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: an error if the resulting configuration is invalid
func NewRenderer(driver hal.Driver, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		cfg:    DefaultConfig(),
		driver: driver,
	}
	for _, opt := range options {
		opt(r)
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid renderer config: %w", err)
	}
	if r.logger == nil {
		r.logger = common.Logger()
	}
	r.stats = profiler.NewProfiler(append([]profiler.ProfilerBuilderOption{profiler.WithLogger(r.logger)}, r.statsOpts...)...)
	r.output.SampleCount = int(r.cfg.SampleCount)
	return r, nil
}

// Open creates a Renderer, negotiates the device and configures the surface at the configured size.
//
// Parameters:
//   - ctx: bounds the device negotiation
//   - driver: the graphics API driver
//   - options: variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the ready renderer
//   - error: an error if creation, negotiation or surface configuration failed
func Open(ctx context.Context, driver hal.Driver, options ...RendererBuilderOption) (Renderer, error) {
	rr, err := NewRenderer(driver, options...)
	if err != nil {
		return nil, err
	}
	r := rr.(*renderer)
	if err := r.Initialize(r.cfg.Backend, r.cfg.PowerPreference); err != nil {
		r.Dispose()
		return nil, err
	}
	if err := r.WaitReady(ctx); err != nil {
		r.Dispose()
		return nil, err
	}
	if err := r.Resize(r.cfg.Width, r.cfg.Height); err != nil {
		r.Dispose()
		return nil, err
	}
	return r, nil
}

func (r *renderer) Device() hal.Device {
	return r.device
}

func (r *renderer) Queue() hal.Queue {
	return r.queue
}
