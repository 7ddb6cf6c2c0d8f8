package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-gpu/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// InitState tracks the asynchronous negotiation of instance, adapter and device.
type InitState int

const (
	InitStateNotInitialized InitState = iota
	InitStateInstanceValid
	InitStateAdapterValid
	InitStateDeviceValid
	InitStateInstanceInvalid
	InitStateAdapterInvalid
	InitStateDeviceInvalid
	// InitStateError is entered when a valid device reports an uncaptured error.
	InitStateError
)

func (s InitState) String() string {
	switch s {
	case InitStateNotInitialized:
		return "not initialized"
	case InitStateInstanceValid:
		return "instance valid"
	case InitStateAdapterValid:
		return "adapter valid"
	case InitStateDeviceValid:
		return "device valid"
	case InitStateInstanceInvalid:
		return "instance invalid"
	case InitStateAdapterInvalid:
		return "adapter invalid"
	case InitStateDeviceInvalid:
		return "device invalid"
	case InitStateError:
		return "error"
	}
	return fmt.Sprintf("InitState(%d)", int(s))
}

// IsFailure reports whether the state is one of the terminal failure states.
func (s InitState) IsFailure() bool {
	switch s {
	case InitStateInstanceInvalid, InitStateAdapterInvalid, InitStateDeviceInvalid, InitStateError:
		return true
	}
	return false
}

// allowedTransitions lists the only forward edges of the state machine.
var allowedTransitions = map[InitState][]InitState{
	InitStateNotInitialized: {InitStateInstanceValid, InitStateInstanceInvalid},
	InitStateInstanceValid:  {InitStateAdapterValid, InitStateAdapterInvalid},
	InitStateAdapterValid:   {InitStateDeviceValid, InitStateDeviceInvalid},
	InitStateDeviceValid:    {InitStateError},
}

func canTransition(from, to InitState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// failureError maps a failure state to its sentinel error.
func failureError(s InitState) error {
	switch s {
	case InitStateInstanceInvalid:
		return ErrInstanceInvalid
	case InitStateAdapterInvalid:
		return ErrAdapterInvalid
	case InitStateDeviceInvalid:
		return ErrDeviceInvalid
	case InitStateError:
		return ErrDeviceError
	}
	return nil
}

func (r *renderer) transition(to InitState, cause error) {
	from := r.state
	if !canTransition(from, to) {
		r.logger.Warn("ignoring invalid init state transition", "from", from, "to", to)
		return
	}
	r.state = to
	if to.IsFailure() {
		r.failure = failureError(to)
		if cause != nil {
			r.failure = fmt.Errorf("%w: %w", r.failure, cause)
		}
		r.logger.Error("renderer initialization failed", "state", to, "error", r.failure)
	} else {
		r.logger.Info("renderer init state", "state", to)
	}
	for _, fn := range r.listeners {
		fn(from, to)
	}
}

func (r *renderer) Initialize(backend hal.BackendType, power hal.PowerPreference) error {
	if r.disposed {
		return ErrDisposed
	}
	if r.state != InitStateNotInitialized {
		return fmt.Errorf("renderer already initialized (state %s)", r.state)
	}
	r.cfg.Backend = backend
	r.cfg.PowerPreference = power

	instance, err := r.driver.CreateInstance()
	if err != nil {
		r.transition(InitStateInstanceInvalid, err)
		return r.failure
	}
	r.instance = instance

	surface, err := instance.CreateSurface()
	if err != nil {
		r.transition(InitStateInstanceInvalid, fmt.Errorf("failed to create surface: %w", err))
		return r.failure
	}
	r.surface = surface
	r.transition(InitStateInstanceValid, nil)

	instance.RequestAdapter(hal.AdapterOptions{
		BackendType:          backend,
		PowerPreference:      power,
		ForceFallbackAdapter: r.cfg.ForceFallbackAdapter,
		CompatibleSurface:    surface,
	}, r.onAdapter)
	return nil
}

func (r *renderer) onAdapter(status hal.RequestStatus, adapter hal.Adapter, message string) {
	if r.state != InitStateInstanceValid || r.disposed {
		if adapter != nil {
			adapter.Release()
		}
		return
	}
	if status != hal.RequestStatusSuccess || adapter == nil {
		r.transition(InitStateAdapterInvalid, fmt.Errorf("adapter request %s: %s", status, message))
		return
	}
	r.adapter = adapter
	r.transition(InitStateAdapterValid, nil)

	features := RequiredFeatures(adapter, r.cfg.GPUTiming, r.logger)
	r.timingSupported = containsFeature(features, hal.FeatureNameTimestampQuery)
	adapter.RequestDevice(DeviceDescriptor(features, r.onUncapturedError), r.onDevice)
}

func (r *renderer) onDevice(status hal.RequestStatus, device hal.Device, message string) {
	if r.state != InitStateAdapterValid || r.disposed {
		if device != nil {
			device.Release()
		}
		return
	}
	if status != hal.RequestStatusSuccess || device == nil {
		r.transition(InitStateDeviceInvalid, fmt.Errorf("device request %s: %s", status, message))
		return
	}
	caps := r.surface.Capabilities(r.adapter)
	if len(caps.Formats) == 0 {
		device.Release()
		r.transition(InitStateDeviceInvalid, fmt.Errorf("surface reports no supported formats"))
		return
	}
	timer, err := profiler.NewGPUTimer(device, r.cfg.GPUTiming && r.timingSupported, r.logger)
	if err != nil {
		device.Release()
		r.transition(InitStateDeviceInvalid, err)
		return
	}

	r.device = device
	r.queue = device.Queue()
	r.surfaceFormat = caps.Formats[0]
	r.gpuTimer = timer
	r.adapter.Release()
	r.adapter = nil

	r.transition(InitStateDeviceValid, nil)
	r.logger.Info("device ready", "surface_format", r.surfaceFormat, "gpu_timing", timer.Enabled())

	if r.pendingSize != nil {
		size := *r.pendingSize
		r.pendingSize = nil
		if err := r.Resize(size[0], size[1]); err != nil {
			r.logger.Error("deferred resize failed", "error", err)
		}
	}
}

func (r *renderer) onUncapturedError(kind hal.ErrorType, message string) {
	r.logger.Error("uncaptured device error", "type", kind, "message", message)
	if r.state == InitStateDeviceValid {
		r.transition(InitStateError, fmt.Errorf("%s: %s", kind, message))
	}
}

func (r *renderer) PumpEvents() error {
	if r.disposed {
		return ErrDisposed
	}
	if r.instance != nil {
		r.instance.ProcessEvents()
	}
	if r.state == InitStateError {
		return r.failure
	}
	return nil
}

func (r *renderer) WaitReady(ctx context.Context) error {
	interval := time.Duration(r.cfg.ReadyPollInterval)
	for attempt := 0; attempt < r.cfg.ReadyRetries; attempt++ {
		if err := r.PumpEvents(); err != nil {
			return err
		}
		if r.state == InitStateDeviceValid {
			return nil
		}
		if r.state.IsFailure() {
			return r.failure
		}
		if r.state == InitStateNotInitialized {
			return fmt.Errorf("%w: Initialize was not called", ErrNotReady)
		}
		if interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d polls (state %s)", ErrReadyTimeout, r.cfg.ReadyRetries, r.state)
}

func (r *renderer) Subscribe(fn func(from, to InitState)) {
	if fn != nil {
		r.listeners = append(r.listeners, fn)
	}
}

func (r *renderer) State() InitState {
	return r.state
}

func (r *renderer) IsReady() bool {
	return r.state == InitStateDeviceValid && !r.disposed
}

func (r *renderer) IsError() bool {
	return r.state.IsFailure()
}
