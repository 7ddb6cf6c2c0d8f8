package profiler

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gpu/common"
	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// MaxPasses is the number of render passes per frame that can be timed.
const MaxPasses = 20

// timestampBytes is the size of the resolve and map buffers: one begin and one end uint64 per pass.
const timestampBytes = 8 * 2 * MaxPasses

// GPUTimer measures render pass durations with GPU timestamp queries.
//
// Each frame, passes call AddPass to obtain a slot whose StartIndex/StopIndex are written by the pass.
// At the end of encoding ResolveTimestamps copies the queries into a mappable buffer, and after submission
// FetchTimestamps maps that buffer asynchronously. At most one map is in flight; frames that end while
// a map is pending are simply not sampled.
//
// A disabled timer accepts every call and does nothing.
type GPUTimer struct {
	enabled bool
	device  hal.Device
	logger  *slog.Logger

	querySet      hal.QuerySet
	resolveBuffer hal.Buffer
	mapBuffer     hal.Buffer

	passNumber   int
	numPasses    int
	resolved     bool
	mapOngoing   bool
	overflows    int
	passNames    [MaxPasses]string
	cumulativeNs [MaxPasses]uint64
	numSamples   [MaxPasses]int
}

// NewGPUTimer creates a GPUTimer on the given device.
// When enabled, it allocates a timestamp query set of 2*MaxPasses entries plus a resolve buffer and a map buffer.
//
// Parameters:
//   - device: the device that owns the query resources
//   - enabled: whether timing is active; the device must have the timestamp-query feature when true
//   - logger: the logger for diagnostics, or nil for common.Logger()
//
// Returns:
//   - *GPUTimer: the created timer
//   - error: an error if a GPU resource could not be created
func NewGPUTimer(device hal.Device, enabled bool, logger *slog.Logger) (*GPUTimer, error) {
	t := &GPUTimer{
		enabled:    enabled,
		device:     device,
		logger:     logger,
		passNumber: -1,
	}
	if t.logger == nil {
		t.logger = common.Logger()
	}
	if !enabled {
		return t, nil
	}

	var err error
	t.querySet, err = device.CreateQuerySet(hal.QuerySetDescriptor{
		Label: "timestamp query set",
		Type:  hal.QueryTypeTimestamp,
		Count: 2 * MaxPasses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create timestamp query set: %w", err)
	}

	t.resolveBuffer, err = device.CreateBuffer(hal.BufferDescriptor{
		Label: "timestamp resolve",
		Size:  timestampBytes,
		Usage: hal.BufferUsageQueryResolve | hal.BufferUsageCopySrc,
	})
	if err != nil {
		t.querySet.Destroy()
		t.querySet.Release()
		return nil, fmt.Errorf("failed to create timestamp resolve buffer: %w", err)
	}

	t.mapBuffer, err = device.CreateBuffer(hal.BufferDescriptor{
		Label: "timestamp map",
		Size:  timestampBytes,
		Usage: hal.BufferUsageCopyDst | hal.BufferUsageMapRead,
	})
	if err != nil {
		t.resolveBuffer.Destroy()
		t.resolveBuffer.Release()
		t.querySet.Destroy()
		t.querySet.Release()
		return nil, fmt.Errorf("failed to create timestamp map buffer: %w", err)
	}
	return t, nil
}

// Enabled reports whether the timer records anything.
func (t *GPUTimer) Enabled() bool {
	return t != nil && t.enabled
}

// QuerySet returns the timestamp query set, or nil when disabled.
func (t *GPUTimer) QuerySet() hal.QuerySet {
	return t.querySet
}

// AddPass allocates the next pass slot for this frame and names it.
// Once MaxPasses slots are in use, further passes overwrite the last slot and a diagnostic is logged.
//
// Parameters:
//   - name: the pass name reported by PassName
//
// Returns:
//   - int: the pass index, to be used with StartIndex and StopIndex
func (t *GPUTimer) AddPass(name string) int {
	if !t.enabled {
		return 0
	}
	if t.passNumber >= MaxPasses-1 {
		t.overflows++
		t.logger.Warn("too many timed render passes, overwriting last slot", "max_passes", MaxPasses, "pass", name)
		t.passNumber = MaxPasses - 1
	} else {
		t.passNumber++
	}
	t.passNames[t.passNumber] = name
	return t.passNumber
}

// StartIndex returns the query index for the beginning of the given pass.
func (t *GPUTimer) StartIndex(pass int) uint32 {
	return uint32(2 * pass)
}

// StopIndex returns the query index for the end of the given pass.
func (t *GPUTimer) StopIndex(pass int) uint32 {
	return uint32(2*pass + 1)
}

// ResolveTimestamps records the number of passes allocated this frame, resets the allocator and,
// unless a map is still in flight, resolves the queries into the map buffer on the given encoder.
// It must be called after the last pass of the frame has ended and before the encoder is finished.
//
// Parameters:
//   - encoder: the frame's command encoder
func (t *GPUTimer) ResolveTimestamps(encoder hal.CommandEncoder) {
	if !t.enabled {
		return
	}
	t.numPasses = t.passNumber + 1
	t.passNumber = -1
	if t.mapOngoing || t.numPasses == 0 {
		return
	}

	queries := uint32(2 * t.numPasses)
	if err := encoder.ResolveQuerySet(t.querySet, 0, queries, t.resolveBuffer, 0); err != nil {
		t.logger.Error("failed to resolve timestamp queries", "error", err)
		return
	}
	if err := encoder.CopyBufferToBuffer(t.resolveBuffer, 0, t.mapBuffer, 0, uint64(queries)*8); err != nil {
		t.logger.Error("failed to copy timestamps", "error", err)
		return
	}
	t.resolved = true
}

// FetchTimestamps requests an asynchronous read of the last resolved timestamps.
// It must be called after the frame's command buffer has been submitted. It does nothing when
// timing is disabled, a previous read is still in flight, or nothing was resolved since the last fetch.
func (t *GPUTimer) FetchTimestamps() {
	if !t.enabled || t.mapOngoing || !t.resolved {
		return
	}
	t.resolved = false
	t.mapOngoing = true
	passes := t.numPasses
	err := t.mapBuffer.MapAsync(hal.MapModeRead, 0, timestampBytes, func(status hal.MapStatus) {
		t.onMapped(status, passes)
	})
	if err != nil {
		t.mapOngoing = false
		t.logger.Error("failed to map timestamp buffer", "error", err)
	}
}

func (t *GPUTimer) onMapped(status hal.MapStatus, passes int) {
	defer func() { t.mapOngoing = false }()
	if status != hal.MapStatusSuccess {
		t.logger.Debug("timestamp map did not succeed", "status", status)
		return
	}

	data := t.mapBuffer.MappedRange(0, timestampBytes)
	if len(data) < passes*16 {
		t.logger.Error("timestamp mapped range too small", "len", len(data), "passes", passes)
		t.mapBuffer.Unmap()
		return
	}
	for pass := 0; pass < passes; pass++ {
		start := binary.LittleEndian.Uint64(data[pass*16:])
		stop := binary.LittleEndian.Uint64(data[pass*16+8:])
		if stop < start {
			continue
		}
		t.cumulativeNs[pass] += stop - start
		t.numSamples[pass]++
	}
	t.mapBuffer.Unmap()
}

// MapPending reports whether a timestamp read is in flight.
func (t *GPUTimer) MapPending() bool {
	return t.mapOngoing
}

// NumPasses returns the number of passes timed in the most recently resolved frame.
func (t *GPUTimer) NumPasses() int {
	return t.numPasses
}

// PassName returns the name of the given pass slot, or "" when out of range.
func (t *GPUTimer) PassName(pass int) string {
	if pass < 0 || pass >= MaxPasses {
		return ""
	}
	return t.passNames[pass]
}

// Overflows returns how many AddPass calls overwrote the last slot.
func (t *GPUTimer) Overflows() int {
	return t.overflows
}

// AverageGPUTime returns the mean duration of a pass in microseconds over the samples collected since
// the previous call for that pass, then resets its accumulator.
//
// Parameters:
//   - pass: the pass index
//
// Returns:
//   - float32: the average in microseconds, or 0 when there are no samples or the index is out of range
func (t *GPUTimer) AverageGPUTime(pass int) float32 {
	if pass < 0 || pass >= MaxPasses || t.numSamples[pass] == 0 {
		return 0
	}
	avg := float32(t.cumulativeNs[pass]) / 1000 / float32(t.numSamples[pass])
	t.cumulativeNs[pass] = 0
	t.numSamples[pass] = 0
	return avg
}

// Dispose waits for an in-flight read to complete by polling the device, then releases the query set and buffers.
// It is safe to call more than once.
func (t *GPUTimer) Dispose() {
	if !t.enabled || t.querySet == nil {
		return
	}
	for t.mapOngoing {
		t.device.Poll(true)
	}
	t.mapBuffer.Destroy()
	t.mapBuffer.Release()
	t.resolveBuffer.Destroy()
	t.resolveBuffer.Release()
	t.querySet.Destroy()
	t.querySet.Release()
	t.mapBuffer, t.resolveBuffer, t.querySet = nil, nil, nil
	t.enabled = false
}
