// package hal is the hardware abstraction layer between the renderer and a WebGPU style graphics API.
// It exposes only the handles and operations the renderer needs to negotiate a device, drive a surface and record frames.
// The production implementation lives in wgpu_backend; hal_fake provides an in-memory recorder for tests.
package hal

import "github.com/Carmen-Shannon/oxy-gpu/common"

// AdapterCallback receives the outcome of Instance.RequestAdapter.
type AdapterCallback func(status RequestStatus, adapter Adapter, message string)

// DeviceCallback receives the outcome of Adapter.RequestDevice.
type DeviceCallback func(status RequestStatus, device Device, message string)

// ErrorCallback receives device errors that were not captured by any error scope.
type ErrorCallback func(kind ErrorType, message string)

// MapCallback receives the outcome of Buffer.MapAsync.
type MapCallback func(status MapStatus)

// AdapterOptions configures an adapter request.
type AdapterOptions struct {
	BackendType          BackendType
	PowerPreference      PowerPreference
	ForceFallbackAdapter bool
	CompatibleSurface    Surface
}

// DeviceDescriptor configures a device request.
type DeviceDescriptor struct {
	Label             string
	QueueLabel        string
	RequiredFeatures  []FeatureName
	RequiredLimits    Limits
	OnUncapturedError ErrorCallback
}

// SurfaceCapabilities lists what a surface supports on a given adapter.
type SurfaceCapabilities struct {
	Formats      []TextureFormat
	PresentModes []PresentMode
}

// SurfaceConfiguration configures the surface swapchain.
type SurfaceConfiguration struct {
	Width       uint32
	Height      uint32
	Format      TextureFormat
	Usage       TextureUsage
	PresentMode PresentMode
}

// TextureDescriptor describes a 2D texture.
type TextureDescriptor struct {
	Label         string
	Width         uint32
	Height        uint32
	MipLevelCount uint32
	SampleCount   uint32
	Format        TextureFormat
	Usage         TextureUsage
}

// TextureViewDescriptor describes a 2D view over a texture.
type TextureViewDescriptor struct {
	Label           string
	Format          TextureFormat
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// QuerySetDescriptor describes a query set.
type QuerySetDescriptor struct {
	Label string
	Type  QueryType
	Count uint32
}

// ColorAttachment describes the color output of a render pass.
// When ResolveTarget is set, View is multisampled and is resolved into ResolveTarget at the end of the pass.
type ColorAttachment struct {
	View          TextureView
	ResolveTarget TextureView
	LoadOp        LoadOp
	ClearValue    common.Color
}

// DepthAttachment describes the depth output of a render pass.
type DepthAttachment struct {
	View       TextureView
	LoadOp     LoadOp
	ClearValue float32
}

// TimestampWrites asks a render pass to write begin and end timestamps into a query set.
type TimestampWrites struct {
	QuerySet   QuerySet
	BeginIndex uint32
	EndIndex   uint32
}

// RenderPassDescriptor describes a render pass. Color may be nil for depth-only passes.
type RenderPassDescriptor struct {
	Label           string
	Color           *ColorAttachment
	Depth           *DepthAttachment
	TimestampWrites *TimestampWrites
}

// Driver creates graphics API instances.
type Driver interface {
	// CreateInstance creates a new API instance.
	//
	// Returns:
	//   - Instance: the created instance
	//   - error: an error if the API could not be loaded
	CreateInstance() (Instance, error)
}

// Instance is the entry point of the graphics API.
// Asynchronous request callbacks only fire from within ProcessEvents.
type Instance interface {
	// CreateSurface creates the presentation surface bound to the host window.
	CreateSurface() (Surface, error)

	// RequestAdapter asks for an adapter. The callback fires during a later ProcessEvents call.
	RequestAdapter(options AdapterOptions, callback AdapterCallback)

	// ProcessEvents delivers pending asynchronous completions.
	ProcessEvents()

	Release()
}

// Adapter represents a physical GPU.
type Adapter interface {
	// RequestDevice asks for a logical device. The callback fires during a later Instance.ProcessEvents call.
	RequestDevice(descriptor DeviceDescriptor, callback DeviceCallback)

	// HasFeature reports whether the adapter supports the given optional feature.
	HasFeature(feature FeatureName) bool

	Release()
}

// Device is a logical GPU device.
type Device interface {
	Queue() Queue
	CreateTexture(descriptor TextureDescriptor) (Texture, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)
	CreateQuerySet(descriptor QuerySetDescriptor) (QuerySet, error)
	CreateBuffer(descriptor BufferDescriptor) (Buffer, error)

	// Poll drives device side completions such as buffer maps.
	//
	// Parameters:
	//   - wait: block until the queue is idle
	//
	// Returns:
	//   - bool: true if the queue is empty
	Poll(wait bool) bool

	Release()
}

// Queue submits command buffers to the GPU.
type Queue interface {
	Submit(buffers ...CommandBuffer)
	Release()
}

// Surface is the window swapchain.
type Surface interface {
	// Capabilities queries what the surface supports on the adapter.
	// Implementations may keep the adapter for later configuration even after Adapter.Release.
	Capabilities(adapter Adapter) SurfaceCapabilities

	Configure(device Device, config SurfaceConfiguration) error
	Unconfigure()

	// CurrentTexture acquires the next swapchain texture.
	// The texture is nil unless the status is SurfaceStatusSuccess.
	CurrentTexture() (Texture, SurfaceStatus)

	Present()
	Release()
}

// Texture is a GPU texture.
type Texture interface {
	Format() TextureFormat
	Width() uint32
	Height() uint32
	SampleCount() uint32
	CreateView(descriptor *TextureViewDescriptor) (TextureView, error)
	Destroy()
	Release()
}

// TextureView is a view over a texture usable as an attachment.
type TextureView interface {
	Release()
}

// CommandEncoder records GPU commands.
type CommandEncoder interface {
	BeginRenderPass(descriptor RenderPassDescriptor) (RenderPassEncoder, error)
	ResolveQuerySet(querySet QuerySet, firstQuery, queryCount uint32, destination Buffer, destinationOffset uint64) error
	CopyBufferToBuffer(source Buffer, sourceOffset uint64, destination Buffer, destinationOffset, size uint64) error
	Finish(label string) (CommandBuffer, error)
	Release()
}

// RenderPassEncoder records commands within a render pass.
type RenderPassEncoder interface {
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissorRect(x, y, width, height uint32)
	End() error
	Release()
}

// CommandBuffer is a finished, submittable command list.
type CommandBuffer interface {
	Release()
}

// QuerySet holds GPU query results such as timestamps.
type QuerySet interface {
	Destroy()
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	Size() uint64

	// MapAsync requests a host mapping. The callback fires during a later Device.Poll.
	MapAsync(mode MapMode, offset, size uint64, callback MapCallback) error

	// MappedRange returns the mapped bytes. Only valid between a successful map callback and Unmap.
	MappedRange(offset, size uint64) []byte

	Unmap()
	Destroy()
	Release()
}
