package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal/hal_fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRenderer creates an uninitialized renderer on a fresh fake driver with an instant ready wait.
func newTestRenderer(t *testing.T, options ...RendererBuilderOption) (*renderer, *hal_fake.Driver) {
	t.Helper()
	drv := hal_fake.NewDriver()
	opts := append([]RendererBuilderOption{WithReadyWait(10, 0)}, options...)
	rr, err := NewRenderer(drv, opts...)
	require.NoError(t, err)
	return rr.(*renderer), drv
}

// newReadyRenderer returns a renderer whose device is valid and whose surface is configured at 800x600.
func newReadyRenderer(t *testing.T, options ...RendererBuilderOption) (*renderer, *hal_fake.Driver) {
	t.Helper()
	r, drv := newTestRenderer(t, options...)
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceHighPerformance))
	require.NoError(t, r.WaitReady(t.Context()))
	require.NoError(t, r.Resize(800, 600))
	return r, drv
}

func TestInitializeReachesDeviceValid(t *testing.T) {
	r, drv := newTestRenderer(t)
	var transitions [][2]InitState
	r.Subscribe(func(from, to InitState) {
		transitions = append(transitions, [2]InitState{from, to})
	})

	require.NoError(t, r.Initialize(hal.BackendTypeVulkan, hal.PowerPreferenceLowPower))
	assert.Equal(t, InitStateInstanceValid, r.State())
	assert.False(t, r.IsReady())
	assert.Equal(t, hal.BackendTypeVulkan, drv.Instance.AdapterOptions.BackendType)
	assert.Equal(t, hal.PowerPreferenceLowPower, drv.Instance.AdapterOptions.PowerPreference)
	assert.NotNil(t, drv.Instance.AdapterOptions.CompatibleSurface)

	require.NoError(t, r.PumpEvents())
	assert.Equal(t, InitStateAdapterValid, r.State())
	require.NoError(t, r.PumpEvents())
	assert.Equal(t, InitStateDeviceValid, r.State())
	assert.True(t, r.IsReady())
	assert.False(t, r.IsError())

	assert.Equal(t, [][2]InitState{
		{InitStateNotInitialized, InitStateInstanceValid},
		{InitStateInstanceValid, InitStateAdapterValid},
		{InitStateAdapterValid, InitStateDeviceValid},
	}, transitions)

	assert.NotNil(t, r.Device())
	assert.NotNil(t, r.Queue())
	assert.Equal(t, hal.TextureFormatBGRA8Unorm, r.SurfaceFormat())
	assert.True(t, drv.Instance.Adapter.Released, "adapter is released once the device exists")
	assert.Equal(t, deviceLabel, drv.Instance.Device.Descriptor.Label)
	assert.Equal(t, queueLabel, drv.Instance.Device.Descriptor.QueueLabel)
}

func TestInitializeTwice(t *testing.T) {
	r, _ := newTestRenderer(t)
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	assert.Error(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
}

func TestInitializeInstanceFailure(t *testing.T) {
	r, drv := newTestRenderer(t)
	drv.InstanceErr = errors.New("no driver")

	err := r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined)
	assert.ErrorIs(t, err, ErrInstanceInvalid)
	assert.Equal(t, InitStateInstanceInvalid, r.State())
	assert.True(t, r.IsError())
	assert.Nil(t, r.Device())
}

func TestInitializeSurfaceFailure(t *testing.T) {
	r, drv := newTestRenderer(t)
	drv.Instance.SurfaceErr = errors.New("no window")

	err := r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined)
	assert.ErrorIs(t, err, ErrInstanceInvalid)
	assert.Equal(t, InitStateInstanceInvalid, r.State())
}

func TestInitializeAdapterFailure(t *testing.T) {
	r, drv := newTestRenderer(t)
	drv.Instance.AdapterStatus = hal.RequestStatusUnavailable
	drv.Instance.AdapterMessage = "no adapter"

	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	err := r.WaitReady(t.Context())
	assert.ErrorIs(t, err, ErrAdapterInvalid)
	assert.Contains(t, err.Error(), "no adapter")
	assert.Equal(t, InitStateAdapterInvalid, r.State())
	assert.Nil(t, r.Device())
	assert.Nil(t, r.Queue())
}

func TestInitializeDeviceFailure(t *testing.T) {
	r, drv := newTestRenderer(t)
	drv.Instance.DeviceStatus = hal.RequestStatusError

	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	assert.ErrorIs(t, r.WaitReady(t.Context()), ErrDeviceInvalid)
	assert.Equal(t, InitStateDeviceInvalid, r.State())
	assert.Nil(t, r.Device())
	assert.Nil(t, r.Queue())
	assert.Nil(t, r.GPUTimer())
}

func TestInitializeNoSurfaceFormats(t *testing.T) {
	r, drv := newTestRenderer(t)
	drv.Instance.Surface.Formats = nil

	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	assert.ErrorIs(t, r.WaitReady(t.Context()), ErrDeviceInvalid)
	assert.Nil(t, r.Device())
	require.NotNil(t, drv.Instance.Device)
	assert.True(t, drv.Instance.Device.Released)
}

func TestWaitReadyTimeout(t *testing.T) {
	r, _ := newTestRenderer(t, WithReadyWait(1, 0))
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))

	err := r.WaitReady(t.Context())
	assert.ErrorIs(t, err, ErrReadyTimeout)
	assert.Equal(t, InitStateAdapterValid, r.State())
}

func TestWaitReadyWithoutInitialize(t *testing.T) {
	r, _ := newTestRenderer(t)
	assert.ErrorIs(t, r.WaitReady(t.Context()), ErrNotReady)
}

func TestWaitReadyContextCancelled(t *testing.T) {
	r, _ := newTestRenderer(t, WithReadyWait(100, time.Millisecond))
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, r.WaitReady(ctx), context.Canceled)
}

func TestTimingFeatureRequested(t *testing.T) {
	r, drv := newReadyRenderer(t, WithGPUTiming(true))
	assert.Contains(t, drv.Instance.Adapter.Descriptor.RequiredFeatures, hal.FeatureNameTimestampQuery)
	assert.True(t, r.GPUTimer().Enabled())
}

func TestTimingFeatureMissing(t *testing.T) {
	drv := hal_fake.NewDriver()
	drv.Instance.Features[hal.FeatureNameTimestampQuery] = false
	rr, err := NewRenderer(drv, WithReadyWait(10, 0), WithGPUTiming(true))
	require.NoError(t, err)
	r := rr.(*renderer)

	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	require.NoError(t, r.WaitReady(t.Context()))
	assert.NotContains(t, drv.Instance.Adapter.Descriptor.RequiredFeatures, hal.FeatureNameTimestampQuery)
	assert.False(t, r.GPUTimer().Enabled())
	assert.Empty(t, drv.Instance.Device.QuerySets)
}

func TestUncapturedErrorMovesToErrorState(t *testing.T) {
	r, drv := newReadyRenderer(t)
	var last InitState
	r.Subscribe(func(_, to InitState) { last = to })

	drv.Instance.Device.RaiseError(hal.ErrorTypeValidation, "bad pipeline")
	assert.Equal(t, InitStateError, r.State())
	assert.Equal(t, InitStateError, last)
	assert.True(t, r.IsError())
	assert.False(t, r.IsReady())

	err := r.PumpEvents()
	assert.ErrorIs(t, err, ErrDeviceError)
	assert.Contains(t, err.Error(), "bad pipeline")
	assert.ErrorIs(t, r.RenderFrame(nil), ErrDeviceError)
	assert.ErrorIs(t, r.Resize(1024, 768), ErrDeviceError)
}

func TestNewRendererRejectsInvalidConfig(t *testing.T) {
	_, err := NewRenderer(hal_fake.NewDriver(), WithMSAA(3))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	drv := hal_fake.NewDriver()
	r, err := Open(t.Context(), drv, WithReadyWait(10, 0), WithSize(640, 480), WithMSAA(MSAAOff))
	require.NoError(t, err)
	w, h := r.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.True(t, drv.Instance.Surface.Configured)
	assert.Nil(t, r.MultisampleBuffer())
}

func TestOpenDisposesOnFailure(t *testing.T) {
	drv := hal_fake.NewDriver()
	drv.Instance.AdapterStatus = hal.RequestStatusError

	r, err := Open(t.Context(), drv, WithReadyWait(10, 0))
	assert.ErrorIs(t, err, ErrAdapterInvalid)
	assert.Nil(t, r)
	assert.True(t, drv.Instance.Surface.Released)
	assert.True(t, drv.Instance.Released)
}

func TestDisposeOrder(t *testing.T) {
	r, drv := newReadyRenderer(t, WithGPUTiming(true))
	rec := drv.Recorder
	rec.Reset()

	require.NoError(t, r.Dispose())
	order := []string{
		"texture.destroy multisample buffer",
		"texture.destroy depth buffer",
		"surface.unconfigure",
		"buffer.destroy timestamp map",
		"querySet.destroy timestamp query set",
		"queue.release",
		"device.release",
		"surface.release",
		"instance.release",
	}
	last := -1
	for _, call := range order {
		idx := rec.Index(call)
		require.NotEqual(t, -1, idx, call)
		assert.Greater(t, idx, last, call)
		last = idx
	}

	assert.Nil(t, r.Device())
	assert.False(t, r.IsReady())
	assert.ErrorIs(t, r.Dispose(), ErrDisposed)
	assert.ErrorIs(t, r.RenderFrame(nil), ErrDisposed)
	assert.ErrorIs(t, r.Resize(10, 10), ErrDisposed)
	assert.ErrorIs(t, r.PumpEvents(), ErrDisposed)
}

func TestDisposeBeforeDevice(t *testing.T) {
	r, drv := newTestRenderer(t)
	require.NoError(t, r.Initialize(hal.BackendTypeDefault, hal.PowerPreferenceUndefined))
	require.NoError(t, r.PumpEvents())
	require.NoError(t, r.Dispose())

	assert.True(t, drv.Instance.Adapter.Released)
	assert.True(t, drv.Instance.Surface.Released)

	// the device request completes after dispose and is dropped
	drv.Instance.ProcessEvents()
	require.NotNil(t, drv.Instance.Device)
	assert.True(t, drv.Instance.Device.Released)
	assert.Nil(t, r.Device())
}
