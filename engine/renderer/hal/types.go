package hal

import (
	"fmt"
	"math"
	"strings"
)

// BackendType selects the native graphics API the adapter should run on.
type BackendType int

const (
	// BackendTypeDefault lets the implementation pick the platform's preferred API.
	BackendTypeDefault BackendType = iota
	// BackendTypeWebGPU requests the browser/Dawn WebGPU implementation.
	BackendTypeWebGPU
	BackendTypeVulkan
	BackendTypeMetal
	BackendTypeD3D11
	BackendTypeD3D12
	BackendTypeOpenGL
	BackendTypeOpenGLES
	// BackendTypeHeadless requests the null backend, useful for CI runs without a GPU.
	BackendTypeHeadless
)

var backendTypeNames = map[BackendType]string{
	BackendTypeDefault:  "default",
	BackendTypeWebGPU:   "webgpu",
	BackendTypeVulkan:   "vulkan",
	BackendTypeMetal:    "metal",
	BackendTypeD3D11:    "d3d11",
	BackendTypeD3D12:    "d3d12",
	BackendTypeOpenGL:   "opengl",
	BackendTypeOpenGLES: "opengles",
	BackendTypeHeadless: "headless",
}

func (b BackendType) String() string {
	if name, ok := backendTypeNames[b]; ok {
		return name
	}
	return fmt.Sprintf("BackendType(%d)", int(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b BackendType) MarshalText() ([]byte, error) {
	if _, ok := backendTypeNames[b]; !ok {
		return nil, fmt.Errorf("unknown backend type %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (b *BackendType) UnmarshalText(text []byte) error {
	parsed, err := ParseBackendType(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBackendType converts a backend name such as "vulkan" or "d3d12" into a BackendType.
//
// Parameters:
//   - name: the backend name, case-insensitive; an empty name selects the default backend
//
// Returns:
//   - BackendType: the parsed backend
//   - error: an error if the name is not a known backend
func ParseBackendType(name string) (BackendType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return BackendTypeDefault, nil
	}
	for b, n := range backendTypeNames {
		if n == name {
			return b, nil
		}
	}
	return BackendTypeDefault, fmt.Errorf("unknown backend type %q", name)
}

// PowerPreference hints which adapter to pick on multi-GPU systems.
type PowerPreference int

const (
	PowerPreferenceUndefined PowerPreference = iota
	PowerPreferenceLowPower
	PowerPreferenceHighPerformance
)

var powerPreferenceNames = map[PowerPreference]string{
	PowerPreferenceUndefined:       "undefined",
	PowerPreferenceLowPower:        "low-power",
	PowerPreferenceHighPerformance: "high-performance",
}

func (p PowerPreference) String() string {
	if name, ok := powerPreferenceNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PowerPreference(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p PowerPreference) MarshalText() ([]byte, error) {
	if _, ok := powerPreferenceNames[p]; !ok {
		return nil, fmt.Errorf("unknown power preference %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PowerPreference) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	if name == "" {
		*p = PowerPreferenceUndefined
		return nil
	}
	for pp, n := range powerPreferenceNames {
		if n == name {
			*p = pp
			return nil
		}
	}
	return fmt.Errorf("unknown power preference %q", name)
}

// TextureFormat enumerates the texture formats the renderer creates or accepts from a surface.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
	TextureFormatRGB10A2Unorm
	TextureFormatRGBA16Float
	TextureFormatDepth24Plus
	TextureFormatDepth24PlusStencil8
	TextureFormatDepth32Float
)

var textureFormatNames = [...]string{
	TextureFormatUndefined:           "undefined",
	TextureFormatRGBA8Unorm:          "rgba8unorm",
	TextureFormatRGBA8UnormSrgb:      "rgba8unorm-srgb",
	TextureFormatBGRA8Unorm:          "bgra8unorm",
	TextureFormatBGRA8UnormSrgb:      "bgra8unorm-srgb",
	TextureFormatRGB10A2Unorm:        "rgb10a2unorm",
	TextureFormatRGBA16Float:         "rgba16float",
	TextureFormatDepth24Plus:         "depth24plus",
	TextureFormatDepth24PlusStencil8: "depth24plus-stencil8",
	TextureFormatDepth32Float:        "depth32float",
}

func (f TextureFormat) String() string {
	if f >= 0 && int(f) < len(textureFormatNames) {
		return textureFormatNames[f]
	}
	return fmt.Sprintf("TextureFormat(%d)", int(f))
}

// IsDepth reports whether the format carries a depth aspect.
func (f TextureFormat) IsDepth() bool {
	switch f {
	case TextureFormatDepth24Plus, TextureFormatDepth24PlusStencil8, TextureFormatDepth32Float:
		return true
	}
	return false
}

// PresentMode selects how presented frames are synchronised with the display.
type PresentMode int

const (
	// PresentModeFifo waits for vertical blank (vsync).
	PresentModeFifo PresentMode = iota
	// PresentModeImmediate presents without waiting, which can tear.
	PresentModeImmediate
	PresentModeMailbox
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "fifo"
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	}
	return fmt.Sprintf("PresentMode(%d)", int(m))
}

// TextureUsage is a bit set of the ways a texture may be used.
type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageStorageBinding
	TextureUsageRenderAttachment
)

// BufferUsage is a bit set of the ways a buffer may be used.
type BufferUsage uint32

const (
	BufferUsageMapRead BufferUsage = 1 << iota
	BufferUsageMapWrite
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageUniform
	BufferUsageQueryResolve
)

// MapMode selects read or write access for a buffer mapping.
type MapMode int

const (
	MapModeRead MapMode = iota
	MapModeWrite
)

// MapStatus is the outcome of an asynchronous buffer map request.
type MapStatus int

const (
	MapStatusSuccess MapStatus = iota
	MapStatusError
	MapStatusAborted
	MapStatusUnknown
)

func (s MapStatus) String() string {
	switch s {
	case MapStatusSuccess:
		return "success"
	case MapStatusError:
		return "error"
	case MapStatusAborted:
		return "aborted"
	}
	return "unknown"
}

// RequestStatus is the outcome of an adapter or device request.
type RequestStatus int

const (
	RequestStatusSuccess RequestStatus = iota
	RequestStatusUnavailable
	RequestStatusError
)

func (s RequestStatus) String() string {
	switch s {
	case RequestStatusSuccess:
		return "success"
	case RequestStatusUnavailable:
		return "unavailable"
	}
	return "error"
}

// SurfaceStatus is the outcome of acquiring the current surface texture.
type SurfaceStatus int

const (
	SurfaceStatusSuccess SurfaceStatus = iota
	SurfaceStatusTimeout
	SurfaceStatusOutdated
	SurfaceStatusLost
	SurfaceStatusOutOfMemory
	SurfaceStatusDeviceLost
	SurfaceStatusError
)

func (s SurfaceStatus) String() string {
	switch s {
	case SurfaceStatusSuccess:
		return "success"
	case SurfaceStatusTimeout:
		return "timeout"
	case SurfaceStatusOutdated:
		return "outdated"
	case SurfaceStatusLost:
		return "lost"
	case SurfaceStatusOutOfMemory:
		return "out of memory"
	case SurfaceStatusDeviceLost:
		return "device lost"
	}
	return "error"
}

// Skippable reports whether a frame that hit this status can simply be dropped.
// Outdated and lost surfaces recover on a later acquire, typically after a resize.
func (s SurfaceStatus) Skippable() bool {
	return s == SurfaceStatusOutdated || s == SurfaceStatusLost
}

// ErrorType classifies an uncaptured device error.
type ErrorType int

const (
	ErrorTypeValidation ErrorType = iota
	ErrorTypeOutOfMemory
	ErrorTypeInternal
	ErrorTypeDeviceLost
	ErrorTypeUnknown
)

func (e ErrorType) String() string {
	switch e {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeOutOfMemory:
		return "out of memory"
	case ErrorTypeInternal:
		return "internal"
	case ErrorTypeDeviceLost:
		return "device lost"
	}
	return "unknown"
}

// FeatureName identifies an optional device feature.
type FeatureName int

const (
	FeatureNameDepthClipControl FeatureName = iota
	FeatureNameTimestampQuery
)

func (f FeatureName) String() string {
	switch f {
	case FeatureNameDepthClipControl:
		return "depth-clip-control"
	case FeatureNameTimestampQuery:
		return "timestamp-query"
	}
	return fmt.Sprintf("FeatureName(%d)", int(f))
}

// QueryType selects what a query set records.
type QueryType int

const (
	QueryTypeOcclusion QueryType = iota
	QueryTypeTimestamp
)

// LoadOp selects what happens to an attachment at the start of a render pass.
type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// Sentinel values meaning "use the adapter's default" for a limit.
const (
	LimitU32Undefined uint32 = math.MaxUint32
	LimitU64Undefined uint64 = math.MaxUint64
)

// Limits lists the device limits the renderer may request.
// Fields left at LimitU32Undefined or LimitU64Undefined take the adapter defaults.
type Limits struct {
	MaxTextureDimension1D      uint32
	MaxTextureDimension2D      uint32
	MaxTextureDimension3D      uint32
	MaxTextureArrayLayers      uint32
	MaxBindGroups              uint32
	MaxBindingsPerBindGroup    uint32
	MaxSampledTexturesPerStage uint32
	MaxSamplersPerStage        uint32
	MaxUniformBuffersPerStage  uint32
	MaxUniformBufferBindSize   uint64
	MaxStorageBufferBindSize   uint64
	MaxVertexBuffers           uint32
	MaxBufferSize              uint64
	MaxVertexAttributes        uint32
	MaxColorAttachments        uint32
}
