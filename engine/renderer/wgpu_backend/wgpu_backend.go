// package wgpu_backend implements the hal interfaces on top of github.com/cogentcore/webgpu.
//
// The binding resolves adapter and device requests synchronously, so this package queues them and
// hands the results to their callbacks from Instance.ProcessEvents, keeping the asynchronous contract of hal.
package wgpu_backend

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/cogentcore/webgpu/wgpu"
)

// driver is the implementation of hal.Driver.
type driver struct {
	surfaceDescriptor *wgpu.SurfaceDescriptor
}

var _ hal.Driver = &driver{}

// NewDriver creates a hal.Driver that presents to the window described by surfaceDescriptor.
// The calling goroutine is locked to its OS thread, as required by the native API and most windowing systems.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, e.g. from wgpuglfw.GetSurfaceDescriptor
//
// Returns:
//   - hal.Driver: the driver
func NewDriver(surfaceDescriptor *wgpu.SurfaceDescriptor) hal.Driver {
	runtime.LockOSThread()
	return &driver{surfaceDescriptor: surfaceDescriptor}
}

func (d *driver) CreateInstance() (hal.Instance, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, errors.New("wgpu: failed to create instance")
	}
	return &instance{raw: inst, surfaceDescriptor: d.surfaceDescriptor}, nil
}

type instance struct {
	raw               *wgpu.Instance
	surfaceDescriptor *wgpu.SurfaceDescriptor
	pending           []func()
	devices           []*device
}

func (i *instance) CreateSurface() (hal.Surface, error) {
	if i.surfaceDescriptor == nil {
		return nil, errors.New("wgpu: no surface descriptor")
	}
	s := i.raw.CreateSurface(i.surfaceDescriptor)
	if s == nil {
		return nil, errors.New("wgpu: failed to create surface")
	}
	return &surface{raw: s}, nil
}

func (i *instance) RequestAdapter(options hal.AdapterOptions, callback hal.AdapterCallback) {
	opts := &wgpu.RequestAdapterOptions{
		PowerPreference:      convertPowerPreference(options.PowerPreference),
		BackendType:          convertBackendType(options.BackendType),
		ForceFallbackAdapter: options.ForceFallbackAdapter,
	}
	if s, ok := options.CompatibleSurface.(*surface); ok && s != nil {
		opts.CompatibleSurface = s.raw
	}
	i.pending = append(i.pending, func() {
		a, err := i.raw.RequestAdapter(opts)
		if err != nil || a == nil {
			callback(hal.RequestStatusUnavailable, nil, fmt.Sprint(err))
			return
		}
		callback(hal.RequestStatusSuccess, &adapter{raw: a, instance: i}, "")
	})
}

// ProcessEvents runs queued requests and polls every live device so buffer map callbacks can fire.
func (i *instance) ProcessEvents() {
	batch := i.pending
	i.pending = nil
	for _, fn := range batch {
		fn()
	}
	for _, d := range i.devices {
		if !d.released {
			d.raw.Poll(false, nil)
		}
	}
}

func (i *instance) Release() {
	i.raw.Release()
}

type adapter struct {
	raw      *wgpu.Adapter
	instance *instance
	// retained is set when a surface keeps the adapter for configuration; the surface then releases it.
	retained bool
}

func (a *adapter) RequestDevice(descriptor hal.DeviceDescriptor, callback hal.DeviceCallback) {
	features := make([]wgpu.FeatureName, 0, len(descriptor.RequiredFeatures))
	for _, f := range descriptor.RequiredFeatures {
		features = append(features, convertFeature(f))
	}
	desc := &wgpu.DeviceDescriptor{
		Label:            descriptor.Label,
		RequiredFeatures: features,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limitsFrom(descriptor.RequiredLimits),
		},
	}
	a.instance.pending = append(a.instance.pending, func() {
		d, err := a.raw.RequestDevice(desc)
		if err != nil || d == nil {
			callback(hal.RequestStatusError, nil, fmt.Sprint(err))
			return
		}
		dev := &device{raw: d, onError: descriptor.OnUncapturedError}
		dev.queue = &queue{raw: d.GetQueue()}
		a.instance.devices = append(a.instance.devices, dev)
		callback(hal.RequestStatusSuccess, dev, "")
	})
}

func (a *adapter) HasFeature(feature hal.FeatureName) bool {
	return a.raw.HasFeature(convertFeature(feature))
}

func (a *adapter) Release() {
	if a.retained {
		return
	}
	a.raw.Release()
}

type device struct {
	raw      *wgpu.Device
	queue    *queue
	onError  hal.ErrorCallback
	released bool
}

// report forwards a failed call to the uncaptured error handler. The binding returns validation
// failures as errors instead of raising them on the device.
func (d *device) report(err error) error {
	if err != nil && d.onError != nil {
		d.onError(hal.ErrorTypeValidation, err.Error())
	}
	return err
}

func (d *device) Queue() hal.Queue {
	return d.queue
}

func (d *device) CreateTexture(descriptor hal.TextureDescriptor) (hal.Texture, error) {
	t, err := d.raw.CreateTexture(&wgpu.TextureDescriptor{
		Label: descriptor.Label,
		Size: wgpu.Extent3D{
			Width:              descriptor.Width,
			Height:             descriptor.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: max(descriptor.MipLevelCount, 1),
		SampleCount:   max(descriptor.SampleCount, 1),
		Dimension:     wgpu.TextureDimension2D,
		Format:        convertTextureFormat(descriptor.Format),
		Usage:         convertTextureUsage(descriptor.Usage),
	})
	if err != nil {
		return nil, d.report(fmt.Errorf("failed to create texture %q: %w", descriptor.Label, err))
	}
	return &texture{raw: t, desc: descriptor}, nil
}

func (d *device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	e, err := d.raw.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, d.report(fmt.Errorf("failed to create command encoder: %w", err))
	}
	return &commandEncoder{raw: e, device: d}, nil
}

func (d *device) CreateQuerySet(descriptor hal.QuerySetDescriptor) (hal.QuerySet, error) {
	qt := wgpu.QueryTypeOcclusion
	if descriptor.Type == hal.QueryTypeTimestamp {
		qt = wgpu.QueryTypeTimestamp
	}
	qs, err := d.raw.CreateQuerySet(&wgpu.QuerySetDescriptor{
		Label: descriptor.Label,
		Type:  qt,
		Count: descriptor.Count,
	})
	if err != nil {
		return nil, d.report(fmt.Errorf("failed to create query set %q: %w", descriptor.Label, err))
	}
	return &querySet{raw: qs}, nil
}

func (d *device) CreateBuffer(descriptor hal.BufferDescriptor) (hal.Buffer, error) {
	b, err := d.raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: descriptor.Label,
		Size:  descriptor.Size,
		Usage: convertBufferUsage(descriptor.Usage),
	})
	if err != nil {
		return nil, d.report(fmt.Errorf("failed to create buffer %q: %w", descriptor.Label, err))
	}
	return &buffer{raw: b, size: descriptor.Size}, nil
}

func (d *device) Poll(wait bool) bool {
	return d.raw.Poll(wait, nil)
}

func (d *device) Release() {
	d.released = true
	d.raw.Release()
}

type queue struct {
	raw *wgpu.Queue
}

func (q *queue) Submit(buffers ...hal.CommandBuffer) {
	raw := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		raw = append(raw, b.(*commandBuffer).raw)
	}
	q.raw.Submit(raw...)
}

func (q *queue) Release() {
	q.raw.Release()
}

type surface struct {
	raw       *wgpu.Surface
	adapter   *adapter
	alphaMode wgpu.CompositeAlphaMode
	config    hal.SurfaceConfiguration
}

// Capabilities returns the formats the renderer can use, in the order the surface prefers them.
// The adapter is retained for Configure and released together with the surface.
func (s *surface) Capabilities(a hal.Adapter) hal.SurfaceCapabilities {
	ad := a.(*adapter)
	ad.retained = true
	s.adapter = ad

	caps := s.raw.GetCapabilities(ad.raw)
	var out hal.SurfaceCapabilities
	for _, f := range caps.Formats {
		if hf, ok := halTextureFormat(f); ok {
			out.Formats = append(out.Formats, hf)
		}
	}
	for _, m := range caps.PresentModes {
		switch m {
		case wgpu.PresentModeFifo:
			out.PresentModes = append(out.PresentModes, hal.PresentModeFifo)
		case wgpu.PresentModeImmediate:
			out.PresentModes = append(out.PresentModes, hal.PresentModeImmediate)
		case wgpu.PresentModeMailbox:
			out.PresentModes = append(out.PresentModes, hal.PresentModeMailbox)
		}
	}
	if len(caps.AlphaModes) > 0 {
		s.alphaMode = caps.AlphaModes[0]
	}
	return out
}

func (s *surface) Configure(d hal.Device, config hal.SurfaceConfiguration) error {
	if s.adapter == nil {
		return errors.New("wgpu: surface capabilities were never queried")
	}
	s.raw.Configure(s.adapter.raw, d.(*device).raw, &wgpu.SurfaceConfiguration{
		Usage:       convertTextureUsage(config.Usage),
		Format:      convertTextureFormat(config.Format),
		Width:       config.Width,
		Height:      config.Height,
		PresentMode: convertPresentMode(config.PresentMode),
		AlphaMode:   s.alphaMode,
	})
	s.config = config
	return nil
}

// Unconfigure is a no-op: the binding replaces the previous swapchain on the next Configure.
func (s *surface) Unconfigure() {}

func (s *surface) CurrentTexture() (hal.Texture, hal.SurfaceStatus) {
	t, err := s.raw.GetCurrentTexture()
	if err != nil {
		return nil, surfaceStatusFromError(err)
	}
	desc := surfaceTextureDescriptor(t.GetFormat(), t.GetWidth(), t.GetHeight(), t.GetSampleCount(), s.config)
	return &texture{raw: t, desc: desc}, hal.SurfaceStatusSuccess
}

// surfaceTextureDescriptor describes an acquired surface texture from what the texture itself reports.
// The configured format is only used when the native format has no hal equivalent.
func surfaceTextureDescriptor(format wgpu.TextureFormat, width, height, sampleCount uint32, config hal.SurfaceConfiguration) hal.TextureDescriptor {
	f, ok := halTextureFormat(format)
	if !ok {
		f = config.Format
	}
	return hal.TextureDescriptor{
		Label:         "surface",
		Width:         width,
		Height:        height,
		MipLevelCount: 1,
		SampleCount:   max(sampleCount, 1),
		Format:        f,
		Usage:         config.Usage,
	}
}

func (s *surface) Present() {
	s.raw.Present()
}

func (s *surface) Release() {
	s.raw.Release()
	if s.adapter != nil {
		s.adapter.raw.Release()
		s.adapter = nil
	}
}
