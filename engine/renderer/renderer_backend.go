package renderer

import "github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Valid reports whether the count is one of the supported sample counts.
func (c MSAASampleCount) Valid() bool {
	switch c {
	case MSAAOff, 2, MSAA4x, MSAA8x, MSAA16x:
		return true
	}
	return false
}

// presentModeFor maps the vsync flag onto a surface present mode.
// VSync waits for vertical blank; otherwise frames are presented immediately and may tear.
func presentModeFor(vsync bool) hal.PresentMode {
	if vsync {
		return hal.PresentModeFifo
	}
	return hal.PresentModeImmediate
}
