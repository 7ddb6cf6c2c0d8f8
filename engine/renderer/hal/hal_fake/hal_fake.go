// package hal_fake is an in-memory implementation of the hal interfaces.
// Every object records the calls made on it into a shared Recorder so tests can assert on ordering,
// and asynchronous callbacks are held back until Instance.ProcessEvents or Device.Poll runs, just like a real GPU instance.
package hal_fake

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

// Recorder collects an ordered log of calls across every fake object created from one Driver.
type Recorder struct {
	Calls []string
}

func (r *Recorder) record(format string, args ...any) {
	r.Calls = append(r.Calls, fmt.Sprintf(format, args...))
}

// Index returns the position of the first recorded call equal to call, or -1.
func (r *Recorder) Index(call string) int {
	return slices.Index(r.Calls, call)
}

// Count returns how many times call was recorded.
func (r *Recorder) Count(call string) int {
	n := 0
	for _, c := range r.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// Reset clears the call log.
func (r *Recorder) Reset() {
	r.Calls = nil
}

// Driver is a fake hal.Driver. The Instance field is returned by CreateInstance and can be tuned before use.
type Driver struct {
	Recorder    *Recorder
	Instance    *Instance
	InstanceErr error
}

var _ hal.Driver = &Driver{}

// NewDriver creates a Driver whose adapter and device requests succeed, whose surface offers
// BGRA8Unorm then RGBA8Unorm, and whose adapter supports every optional feature.
func NewDriver() *Driver {
	rec := &Recorder{}
	surface := &Surface{
		rec:     rec,
		Formats: []hal.TextureFormat{hal.TextureFormatBGRA8Unorm, hal.TextureFormatRGBA8Unorm},
	}
	instance := &Instance{
		rec:     rec,
		Surface: surface,
		Features: map[hal.FeatureName]bool{
			hal.FeatureNameDepthClipControl: true,
			hal.FeatureNameTimestampQuery:   true,
		},
	}
	return &Driver{Recorder: rec, Instance: instance}
}

func (d *Driver) CreateInstance() (hal.Instance, error) {
	d.Recorder.record("instance.create")
	if d.InstanceErr != nil {
		return nil, d.InstanceErr
	}
	return d.Instance, nil
}

// Instance is a fake hal.Instance. Adapter and device requests complete on the next ProcessEvents call
// with the configured statuses.
type Instance struct {
	rec *Recorder

	Surface        *Surface
	SurfaceErr     error
	AdapterStatus  hal.RequestStatus
	AdapterMessage string
	DeviceStatus   hal.RequestStatus
	DeviceMessage  string
	Features       map[hal.FeatureName]bool

	// AdapterOptions holds the options of the last adapter request.
	AdapterOptions hal.AdapterOptions
	Adapter        *Adapter
	Device         *Device

	ProcessEventsCount int
	Released           bool

	pending []func()
}

var _ hal.Instance = &Instance{}

func (i *Instance) CreateSurface() (hal.Surface, error) {
	i.rec.record("instance.createSurface")
	if i.SurfaceErr != nil {
		return nil, i.SurfaceErr
	}
	return i.Surface, nil
}

func (i *Instance) RequestAdapter(options hal.AdapterOptions, callback hal.AdapterCallback) {
	i.rec.record("instance.requestAdapter")
	i.AdapterOptions = options
	i.pending = append(i.pending, func() {
		if i.AdapterStatus != hal.RequestStatusSuccess {
			callback(i.AdapterStatus, nil, i.AdapterMessage)
			return
		}
		i.Adapter = &Adapter{rec: i.rec, instance: i}
		callback(hal.RequestStatusSuccess, i.Adapter, "")
	})
}

// ProcessEvents runs the completions queued before this call, then polls the device if one exists.
// Requests issued by those completions are delivered on the following call.
func (i *Instance) ProcessEvents() {
	i.ProcessEventsCount++
	batch := i.pending
	i.pending = nil
	for _, fn := range batch {
		fn()
	}
	if i.Device != nil && !i.Device.Released {
		i.Device.Poll(false)
	}
}

// Pending returns the number of undelivered asynchronous completions.
func (i *Instance) Pending() int {
	return len(i.pending)
}

func (i *Instance) Release() {
	i.rec.record("instance.release")
	i.Released = true
}

// Adapter is a fake hal.Adapter.
type Adapter struct {
	rec      *Recorder
	instance *Instance

	// Descriptor holds the descriptor of the last device request.
	Descriptor hal.DeviceDescriptor
	Released   bool
}

var _ hal.Adapter = &Adapter{}

func (a *Adapter) RequestDevice(descriptor hal.DeviceDescriptor, callback hal.DeviceCallback) {
	a.rec.record("adapter.requestDevice")
	a.Descriptor = descriptor
	inst := a.instance
	inst.pending = append(inst.pending, func() {
		if inst.DeviceStatus != hal.RequestStatusSuccess {
			callback(inst.DeviceStatus, nil, inst.DeviceMessage)
			return
		}
		dev := &Device{rec: a.rec, Descriptor: descriptor}
		dev.queue = &Queue{rec: a.rec}
		inst.Device = dev
		callback(hal.RequestStatusSuccess, dev, "")
	})
}

func (a *Adapter) HasFeature(feature hal.FeatureName) bool {
	return a.instance.Features[feature]
}

func (a *Adapter) Release() {
	a.rec.record("adapter.release")
	a.Released = true
}

// Device is a fake hal.Device holding every object created from it.
type Device struct {
	rec *Recorder

	Descriptor hal.DeviceDescriptor
	TextureErr error
	EncoderErr error
	// MapLatency is the number of Poll calls a buffer map waits before completing.
	MapLatency int

	Textures  []*Texture
	Buffers   []*Buffer
	QuerySets []*QuerySet
	Encoders  []*CommandEncoder

	PollCount int
	Released  bool

	queue *Queue
}

var _ hal.Device = &Device{}

// NewDevice creates a standalone device and queue, for tests that do not need adapter negotiation.
func NewDevice() *Device {
	rec := &Recorder{}
	return &Device{rec: rec, queue: &Queue{rec: rec}}
}

// Recorder returns the call log shared by this device.
func (d *Device) Recorder() *Recorder {
	return d.rec
}

// BufferLabelled returns the first buffer created with the given label, or nil.
func (d *Device) BufferLabelled(label string) *Buffer {
	for _, b := range d.Buffers {
		if b.Desc.Label == label {
			return b
		}
	}
	return nil
}

// RaiseError delivers an uncaptured error through the callback given at device creation.
func (d *Device) RaiseError(kind hal.ErrorType, message string) {
	if d.Descriptor.OnUncapturedError != nil {
		d.Descriptor.OnUncapturedError(kind, message)
	}
}

// FakeQueue returns the concrete queue.
func (d *Device) FakeQueue() *Queue {
	return d.queue
}

// LastEncoder returns the most recently created command encoder, or nil.
func (d *Device) LastEncoder() *CommandEncoder {
	if len(d.Encoders) == 0 {
		return nil
	}
	return d.Encoders[len(d.Encoders)-1]
}

// TexturesLabelled returns every texture created with the given label, in creation order.
func (d *Device) TexturesLabelled(label string) []*Texture {
	var out []*Texture
	for _, t := range d.Textures {
		if t.Desc.Label == label {
			out = append(out, t)
		}
	}
	return out
}

func (d *Device) Queue() hal.Queue {
	return d.queue
}

func (d *Device) CreateTexture(descriptor hal.TextureDescriptor) (hal.Texture, error) {
	d.rec.record("device.createTexture %s", descriptor.Label)
	if d.TextureErr != nil {
		return nil, d.TextureErr
	}
	tex := &Texture{rec: d.rec, Desc: descriptor}
	d.Textures = append(d.Textures, tex)
	return tex, nil
}

func (d *Device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	d.rec.record("device.createCommandEncoder")
	if d.EncoderErr != nil {
		return nil, d.EncoderErr
	}
	enc := &CommandEncoder{rec: d.rec, Label: label}
	d.Encoders = append(d.Encoders, enc)
	return enc, nil
}

func (d *Device) CreateQuerySet(descriptor hal.QuerySetDescriptor) (hal.QuerySet, error) {
	d.rec.record("device.createQuerySet %s", descriptor.Label)
	qs := &QuerySet{rec: d.rec, Desc: descriptor, Values: make([]uint64, descriptor.Count)}
	d.QuerySets = append(d.QuerySets, qs)
	return qs, nil
}

func (d *Device) CreateBuffer(descriptor hal.BufferDescriptor) (hal.Buffer, error) {
	d.rec.record("device.createBuffer %s", descriptor.Label)
	buf := &Buffer{rec: d.rec, device: d, Desc: descriptor, data: make([]byte, descriptor.Size)}
	d.Buffers = append(d.Buffers, buf)
	return buf, nil
}

// Poll advances every pending buffer map by one step.
func (d *Device) Poll(wait bool) bool {
	d.PollCount++
	for _, b := range d.Buffers {
		b.poll()
	}
	return true
}

func (d *Device) Release() {
	d.rec.record("device.release")
	d.Released = true
}

// Queue is a fake hal.Queue.
type Queue struct {
	rec *Recorder

	Submitted []*CommandBuffer
	Released  bool
}

var _ hal.Queue = &Queue{}

func (q *Queue) Submit(buffers ...hal.CommandBuffer) {
	q.rec.record("queue.submit")
	for _, b := range buffers {
		cb := b.(*CommandBuffer)
		cb.Submitted = true
		q.Submitted = append(q.Submitted, cb)
	}
}

func (q *Queue) Release() {
	q.rec.record("queue.release")
	q.Released = true
}

// Surface is a fake hal.Surface. Statuses queues the outcomes of upcoming CurrentTexture calls;
// once it is empty every acquire succeeds.
type Surface struct {
	rec *Recorder

	Formats      []hal.TextureFormat
	ConfigureErr error
	Statuses     []hal.SurfaceStatus

	Config           hal.SurfaceConfiguration
	Configured       bool
	ConfigureCount   int
	UnconfigureCount int
	PresentCount     int
	Acquired         []*Texture
	Released         bool
}

var _ hal.Surface = &Surface{}

func (s *Surface) Capabilities(adapter hal.Adapter) hal.SurfaceCapabilities {
	return hal.SurfaceCapabilities{
		Formats:      slices.Clone(s.Formats),
		PresentModes: []hal.PresentMode{hal.PresentModeFifo, hal.PresentModeImmediate},
	}
}

func (s *Surface) Configure(device hal.Device, config hal.SurfaceConfiguration) error {
	s.rec.record("surface.configure")
	if s.ConfigureErr != nil {
		return s.ConfigureErr
	}
	s.Config = config
	s.Configured = true
	s.ConfigureCount++
	return nil
}

func (s *Surface) Unconfigure() {
	s.rec.record("surface.unconfigure")
	s.Configured = false
	s.UnconfigureCount++
}

func (s *Surface) CurrentTexture() (hal.Texture, hal.SurfaceStatus) {
	s.rec.record("surface.acquire")
	status := hal.SurfaceStatusSuccess
	if len(s.Statuses) > 0 {
		status = s.Statuses[0]
		s.Statuses = s.Statuses[1:]
	}
	if status != hal.SurfaceStatusSuccess {
		return nil, status
	}
	tex := &Texture{rec: s.rec, Desc: hal.TextureDescriptor{
		Label:       "surface",
		Width:       s.Config.Width,
		Height:      s.Config.Height,
		SampleCount: 1,
		Format:      s.Config.Format,
		Usage:       s.Config.Usage,
	}}
	s.Acquired = append(s.Acquired, tex)
	return tex, status
}

func (s *Surface) Present() {
	s.rec.record("surface.present")
	s.PresentCount++
}

func (s *Surface) Release() {
	s.rec.record("surface.release")
	s.Released = true
}

// Texture is a fake hal.Texture.
type Texture struct {
	rec *Recorder

	Desc      hal.TextureDescriptor
	Views     []*TextureView
	Destroyed bool
	Released  bool
}

var _ hal.Texture = &Texture{}

func (t *Texture) Format() hal.TextureFormat { return t.Desc.Format }
func (t *Texture) Width() uint32             { return t.Desc.Width }
func (t *Texture) Height() uint32            { return t.Desc.Height }

func (t *Texture) SampleCount() uint32 {
	if t.Desc.SampleCount == 0 {
		return 1
	}
	return t.Desc.SampleCount
}

func (t *Texture) CreateView(descriptor *hal.TextureViewDescriptor) (hal.TextureView, error) {
	t.rec.record("texture.createView %s", t.Desc.Label)
	view := &TextureView{rec: t.rec, Texture: t}
	if descriptor != nil {
		view.Desc = *descriptor
	}
	t.Views = append(t.Views, view)
	return view, nil
}

func (t *Texture) Destroy() {
	t.rec.record("texture.destroy %s", t.Desc.Label)
	t.Destroyed = true
}

func (t *Texture) Release() {
	t.rec.record("texture.release %s", t.Desc.Label)
	t.Released = true
}

// TextureView is a fake hal.TextureView.
type TextureView struct {
	rec *Recorder

	Texture  *Texture
	Desc     hal.TextureViewDescriptor
	Released bool
}

var _ hal.TextureView = &TextureView{}

// NewTextureView creates a free standing view, useful as an off-screen target in tests.
func NewTextureView(rec *Recorder, label string, width, height uint32, format hal.TextureFormat) *TextureView {
	tex := &Texture{rec: rec, Desc: hal.TextureDescriptor{Label: label, Width: width, Height: height, SampleCount: 1, Format: format}}
	view := &TextureView{rec: rec, Texture: tex, Desc: hal.TextureViewDescriptor{Label: label, Format: format}}
	tex.Views = append(tex.Views, view)
	return view
}

func (v *TextureView) Release() {
	label := ""
	if v.Texture != nil {
		label = v.Texture.Desc.Label
	}
	v.rec.record("view.release %s", label)
	v.Released = true
}

// CommandEncoder is a fake hal.CommandEncoder.
type CommandEncoder struct {
	rec *Recorder

	Label      string
	FinishErr  error
	ResolveErr error
	CopyErr    error
	Passes     []*RenderPass
	Resolves   []ResolveCall
	Copies     []CopyCall
	Finished   bool
	Released   bool
}

var _ hal.CommandEncoder = &CommandEncoder{}

// ResolveCall records a ResolveQuerySet call.
type ResolveCall struct {
	FirstQuery, QueryCount uint32
	Destination            *Buffer
}

// CopyCall records a CopyBufferToBuffer call.
type CopyCall struct {
	Source, Destination *Buffer
	Size                uint64
}

func (e *CommandEncoder) BeginRenderPass(descriptor hal.RenderPassDescriptor) (hal.RenderPassEncoder, error) {
	e.rec.record("encoder.beginRenderPass %s", descriptor.Label)
	pass := &RenderPass{rec: e.rec, Desc: descriptor}
	e.Passes = append(e.Passes, pass)
	return pass, nil
}

// ResolveQuerySet writes the query values as little-endian uint64s into the destination buffer.
func (e *CommandEncoder) ResolveQuerySet(querySet hal.QuerySet, firstQuery, queryCount uint32, destination hal.Buffer, destinationOffset uint64) error {
	e.rec.record("encoder.resolveQuerySet")
	if e.ResolveErr != nil {
		return e.ResolveErr
	}
	qs := querySet.(*QuerySet)
	dst := destination.(*Buffer)
	e.Resolves = append(e.Resolves, ResolveCall{FirstQuery: firstQuery, QueryCount: queryCount, Destination: dst})
	for i := uint32(0); i < queryCount; i++ {
		off := destinationOffset + uint64(i)*8
		binary.LittleEndian.PutUint64(dst.data[off:off+8], qs.Values[firstQuery+i])
	}
	return nil
}

func (e *CommandEncoder) CopyBufferToBuffer(source hal.Buffer, sourceOffset uint64, destination hal.Buffer, destinationOffset, size uint64) error {
	e.rec.record("encoder.copyBufferToBuffer")
	if e.CopyErr != nil {
		return e.CopyErr
	}
	src := source.(*Buffer)
	dst := destination.(*Buffer)
	if dst.Mapped || dst.mapCallback != nil {
		return errors.New("copy destination is mapped")
	}
	e.Copies = append(e.Copies, CopyCall{Source: src, Destination: dst, Size: size})
	copy(dst.data[destinationOffset:destinationOffset+size], src.data[sourceOffset:sourceOffset+size])
	return nil
}

func (e *CommandEncoder) Finish(label string) (hal.CommandBuffer, error) {
	e.rec.record("encoder.finish")
	if e.FinishErr != nil {
		return nil, e.FinishErr
	}
	e.Finished = true
	return &CommandBuffer{rec: e.rec}, nil
}

func (e *CommandEncoder) Release() {
	e.rec.record("encoder.release")
	e.Released = true
}

// RenderPass is a fake hal.RenderPassEncoder.
type RenderPass struct {
	rec *Recorder

	Desc       hal.RenderPassDescriptor
	Viewport   [6]float32
	Scissor    [4]uint32
	ScissorSet bool
	Ended      bool
	Released   bool
}

var _ hal.RenderPassEncoder = &RenderPass{}

func (p *RenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.Viewport = [6]float32{x, y, width, height, minDepth, maxDepth}
}

func (p *RenderPass) SetScissorRect(x, y, width, height uint32) {
	p.Scissor = [4]uint32{x, y, width, height}
	p.ScissorSet = true
}

func (p *RenderPass) End() error {
	p.rec.record("pass.end %s", p.Desc.Label)
	p.Ended = true
	return nil
}

func (p *RenderPass) Release() {
	p.Released = true
}

// CommandBuffer is a fake hal.CommandBuffer.
type CommandBuffer struct {
	rec *Recorder

	Submitted bool
	Released  bool
}

var _ hal.CommandBuffer = &CommandBuffer{}

func (c *CommandBuffer) Release() {
	c.rec.record("commandBuffer.release")
	c.Released = true
}

// QuerySet is a fake hal.QuerySet. Tests write timestamps into Values before a resolve.
type QuerySet struct {
	rec *Recorder

	Desc      hal.QuerySetDescriptor
	Values    []uint64
	Destroyed bool
	Released  bool
}

var _ hal.QuerySet = &QuerySet{}

func (q *QuerySet) Destroy() {
	q.rec.record("querySet.destroy %s", q.Desc.Label)
	q.Destroyed = true
}

func (q *QuerySet) Release() {
	q.Released = true
}

// Buffer is a fake hal.Buffer backed by a byte slice.
// A MapAsync request completes with MapResult after Device.MapLatency polls.
type Buffer struct {
	rec    *Recorder
	device *Device

	Desc      hal.BufferDescriptor
	MapResult hal.MapStatus
	Mapped    bool
	MapCount  int
	Destroyed bool
	Released  bool

	data        []byte
	mapCallback hal.MapCallback
	pollsLeft   int
}

var _ hal.Buffer = &Buffer{}

// MapPending reports whether a map request has not completed yet.
func (b *Buffer) MapPending() bool {
	return b.mapCallback != nil
}

// Data exposes the backing bytes.
func (b *Buffer) Data() []byte {
	return b.data
}

func (b *Buffer) Size() uint64 {
	return b.Desc.Size
}

func (b *Buffer) MapAsync(mode hal.MapMode, offset, size uint64, callback hal.MapCallback) error {
	b.rec.record("buffer.mapAsync %s", b.Desc.Label)
	if b.mapCallback != nil || b.Mapped {
		return errors.New("buffer is already mapped or has a map pending")
	}
	b.MapCount++
	b.mapCallback = callback
	b.pollsLeft = b.device.MapLatency
	return nil
}

func (b *Buffer) MappedRange(offset, size uint64) []byte {
	if !b.Mapped {
		return nil
	}
	return b.data[offset : offset+size]
}

func (b *Buffer) Unmap() {
	b.rec.record("buffer.unmap %s", b.Desc.Label)
	b.Mapped = false
}

// Destroy aborts a pending map, delivering MapStatusAborted.
func (b *Buffer) Destroy() {
	b.rec.record("buffer.destroy %s", b.Desc.Label)
	b.Destroyed = true
	if cb := b.mapCallback; cb != nil {
		b.mapCallback = nil
		cb(hal.MapStatusAborted)
	}
}

func (b *Buffer) Release() {
	b.Released = true
}

func (b *Buffer) poll() {
	if b.mapCallback == nil {
		return
	}
	if b.pollsLeft > 0 {
		b.pollsLeft--
		return
	}
	cb := b.mapCallback
	b.mapCallback = nil
	if b.MapResult == hal.MapStatusSuccess {
		b.Mapped = true
	}
	cb(b.MapResult)
}
