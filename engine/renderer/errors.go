package renderer

import "errors"

var (
	// ErrNotReady is returned when an operation needs a device that has not been negotiated yet.
	ErrNotReady = errors.New("renderer: device not ready")
	// ErrInstanceInvalid is returned when the graphics instance or surface could not be created.
	ErrInstanceInvalid = errors.New("renderer: instance invalid")
	// ErrAdapterInvalid is returned when no suitable adapter was found.
	ErrAdapterInvalid = errors.New("renderer: adapter invalid")
	// ErrDeviceInvalid is returned when the adapter refused to create a device.
	ErrDeviceInvalid = errors.New("renderer: device invalid")
	// ErrDeviceError is returned once the device reported an uncaptured error.
	ErrDeviceError = errors.New("renderer: device error")
	// ErrReadyTimeout is returned when the device did not become ready within the configured number of polls.
	ErrReadyTimeout = errors.New("renderer: timed out waiting for device")
	// ErrSurfaceAcquire is returned when the surface texture could not be acquired for a non-recoverable reason.
	ErrSurfaceAcquire = errors.New("renderer: failed to acquire surface texture")
	// ErrSurfaceConfigure is returned when the surface or its attachments could not be (re)created.
	ErrSurfaceConfigure = errors.New("renderer: failed to configure surface")
	// ErrResizeDuringFrame is returned when Resize is called from inside RenderFrame.
	ErrResizeDuringFrame = errors.New("renderer: resize during frame")
	// ErrFrameReentered is returned when RenderFrame is called from inside its own callback.
	ErrFrameReentered = errors.New("renderer: render frame re-entered")
	// ErrNotInFrame is returned by frame-only operations called outside RenderFrame.
	ErrNotInFrame = errors.New("renderer: not inside a frame")
	// ErrScissorOutOfBounds is returned when a scissor rectangle exceeds the current render target.
	ErrScissorOutOfBounds = errors.New("renderer: scissor rectangle out of bounds")
	// ErrUnpairedPop is returned when a pop does not match the most recent push.
	ErrUnpairedPop = errors.New("renderer: unpaired render target pop")
	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("renderer: disposed")
)
