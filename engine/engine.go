package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gpu/engine/window"
)

// engine implements the Engine interface.
// Rendering runs on the window thread; tick callbacks run on a worker pool driven by a ticker goroutine.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	logger   *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickWorkers    int
	tickPool       worker.DynamicWorkerPool
	tickMu         sync.Mutex
	tickCallbacks  []func(deltaTime float32)
	ticks          atomic.Uint64

	configPath string
	config     *configWatcher

	renderCallback   func(deltaTime float32)
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	lastRender       time.Time

	errMu sync.Mutex
	err   error
}

// Engine drives a window and its renderer: it pumps GPU events and renders one frame per window loop iteration,
// forwards framebuffer resizes to the renderer, and runs logic tick callbacks at a fixed rate.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	Renderer() renderer.Renderer

	// EnableProfiler enables frame and memory statistics output to the log.
	EnableProfiler()

	// DisableProfiler disables frame and memory statistics output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// Tick callbacks are called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// AddTickCallback registers a function called each engine tick.
	// All tick callbacks of one tick run concurrently on the tick worker pool, off the render thread,
	// and the next tick starts only after every callback returned. Callbacks must not call the renderer.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds since the previous tick
	AddTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called inside each rendered frame.
	// Use the renderer's CommandEncoder and BeginRenderPass from within it.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds since the previous frame
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Ticks returns the number of completed engine ticks.
	Ticks() uint64

	// Run starts the tick loop and runs the window message loop on the calling thread until the window closes,
	// Quit is called, or the renderer fails. When a config file was given, changes to it are applied between frames.
	// An engine runs once: after Quit, a new Run returns on its first iteration.
	//
	// Returns:
	//   - error: the renderer failure that stopped the loop, an error if the config file cannot be watched, or nil
	Run() error

	// Quit signals the engine to stop. Safe to call multiple times and from any goroutine.
	Quit()
}

// NewEngine creates a new Engine for the given window and renderer.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - w: the window to run the message loop on
//   - r: a renderer presenting to w
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the window or renderer is nil
func NewEngine(w window.Window, r renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	if w == nil || r == nil {
		return nil, errors.New("engine needs a window and a renderer")
	}
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		window:          w,
		renderer:        r,
		engineTickRate:  time.Second / 60,
		tickWorkers:     4,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.logger == nil {
		e.logger = common.Logger()
	}
	e.profiler = profiler.NewProfiler(profiler.WithLogging(true), profiler.WithLogger(e.logger))
	e.tickPool = worker.NewDynamicWorkerPool(e.tickWorkers, 64, time.Second)

	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.RequestResize(width, height)
	})

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine is already running")
	}
	e.lastRender = time.Now()

	if e.configPath != "" {
		cw, err := newConfigWatcher(e.configPath, e.logger)
		if err != nil {
			e.running.Store(false)
			return err
		}
		e.config = cw
		defer func() {
			e.config.Close()
			e.config = nil
		}()
	}

	e.wg.Add(1)
	go e.handleEngine()

	e.window.SetUpdateCallback(func() {
		if err := e.frame(); err != nil {
			e.fail(err)
		}
	})
	e.window.ProcessMessages()
	e.window.SetUpdateCallback(nil)

	e.signalQuit()
	e.wg.Wait()
	e.tickPool.Stop()
	e.running.Store(false)

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// fail records the error that stops the engine and closes the window loop.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.logger.Error("engine stopped", "error", err)
	e.signalQuit()
	e.window.RequestClose()
}

// frame runs one iteration of the render loop: event pump, frame, statistics and frame limiting.
// Only negotiation and device failures are returned; other frame errors are logged and the loop continues.
func (e *engine) frame() error {
	select {
	case <-e.quitChannel:
		e.window.RequestClose()
		return nil
	default:
	}

	if err := e.renderer.PumpEvents(); err != nil {
		return err
	}
	if e.config != nil {
		select {
		case cfg := <-e.config.updates:
			e.applyConfig(cfg)
		default:
		}
	}

	now := time.Now()
	dt := float32(now.Sub(e.lastRender).Seconds())
	e.lastRender = now

	err := e.renderer.RenderFrame(func() {
		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
	})
	if err != nil {
		if e.renderer.IsError() {
			return err
		}
		e.logger.Warn("frame failed", "error", err)
	}

	if e.profilingEnabled {
		e.profiler.Tick()
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return nil
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callbacks at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// tick submits every tick callback to the worker pool and waits for all of them.
// A per-tick WaitGroup is the barrier, since pool.Wait() blocks until workers idle-exit.
func (e *engine) tick(dt float32) {
	e.tickMu.Lock()
	callbacks := append([]func(float32){}, e.tickCallbacks...)
	e.tickMu.Unlock()

	var wg sync.WaitGroup
	for i, cb := range callbacks {
		wg.Add(1)
		e.tickPool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (res any, err error) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						err = fmt.Errorf("tick callback %d panicked: %v", i, rec)
						e.logger.Error("tick callback panicked", "callback", i, "panic", rec)
					}
				}()
				cb(dt)
				return nil, nil
			},
		})
	}
	wg.Wait()
	e.ticks.Add(1)
}

// EnableProfiler enables frame and memory statistics output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables frame and memory statistics output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// replace a pending update that the tick loop has not picked up yet
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) AddTickCallback(callback func(deltaTime float32)) {
	if callback == nil {
		return
	}
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.tickCallbacks = append(e.tickCallbacks, callback)
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Ticks() uint64 {
	return e.ticks.Load()
}
