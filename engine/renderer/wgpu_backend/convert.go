package wgpu_backend

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
	"github.com/cogentcore/webgpu/wgpu"
)

func convertBackendType(b hal.BackendType) wgpu.BackendType {
	switch b {
	case hal.BackendTypeWebGPU:
		return wgpu.BackendTypeWebGPU
	case hal.BackendTypeVulkan:
		return wgpu.BackendTypeVulkan
	case hal.BackendTypeMetal:
		return wgpu.BackendTypeMetal
	case hal.BackendTypeD3D11:
		return wgpu.BackendTypeD3D11
	case hal.BackendTypeD3D12:
		return wgpu.BackendTypeD3D12
	case hal.BackendTypeOpenGL:
		return wgpu.BackendTypeOpenGL
	case hal.BackendTypeOpenGLES:
		return wgpu.BackendTypeOpenGLES
	case hal.BackendTypeHeadless:
		return wgpu.BackendTypeNull
	}
	return wgpu.BackendTypeUndefined
}

func convertPowerPreference(p hal.PowerPreference) wgpu.PowerPreference {
	switch p {
	case hal.PowerPreferenceLowPower:
		return wgpu.PowerPreferenceLowPower
	case hal.PowerPreferenceHighPerformance:
		return wgpu.PowerPreferenceHighPerformance
	}
	return wgpu.PowerPreferenceUndefined
}

var textureFormats = map[hal.TextureFormat]wgpu.TextureFormat{
	hal.TextureFormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	hal.TextureFormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	hal.TextureFormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	hal.TextureFormatBGRA8UnormSrgb:      wgpu.TextureFormatBGRA8UnormSrgb,
	hal.TextureFormatRGB10A2Unorm:        wgpu.TextureFormatRGB10A2Unorm,
	hal.TextureFormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
	hal.TextureFormatDepth24Plus:         wgpu.TextureFormatDepth24Plus,
	hal.TextureFormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	hal.TextureFormatDepth32Float:        wgpu.TextureFormatDepth32Float,
}

func convertTextureFormat(f hal.TextureFormat) wgpu.TextureFormat {
	if wf, ok := textureFormats[f]; ok {
		return wf
	}
	return wgpu.TextureFormatUndefined
}

// halTextureFormat maps a native format back, reporting false for formats the renderer does not handle.
func halTextureFormat(f wgpu.TextureFormat) (hal.TextureFormat, bool) {
	for hf, wf := range textureFormats {
		if wf == f {
			return hf, true
		}
	}
	return hal.TextureFormatUndefined, false
}

func convertPresentMode(m hal.PresentMode) wgpu.PresentMode {
	switch m {
	case hal.PresentModeImmediate:
		return wgpu.PresentModeImmediate
	case hal.PresentModeMailbox:
		return wgpu.PresentModeMailbox
	}
	return wgpu.PresentModeFifo
}

func convertTextureUsage(u hal.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&hal.TextureUsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&hal.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	if u&hal.TextureUsageTextureBinding != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&hal.TextureUsageStorageBinding != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&hal.TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	return out
}

func convertBufferUsage(u hal.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&hal.BufferUsageMapRead != 0 {
		out |= wgpu.BufferUsageMapRead
	}
	if u&hal.BufferUsageMapWrite != 0 {
		out |= wgpu.BufferUsageMapWrite
	}
	if u&hal.BufferUsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&hal.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	if u&hal.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&hal.BufferUsageQueryResolve != 0 {
		out |= wgpu.BufferUsageQueryResolve
	}
	return out
}

func convertFeature(f hal.FeatureName) wgpu.FeatureName {
	if f == hal.FeatureNameTimestampQuery {
		return wgpu.FeatureNameTimestampQuery
	}
	return wgpu.FeatureNameDepthClipControl
}

func convertLoadOp(op hal.LoadOp) wgpu.LoadOp {
	if op == hal.LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func convertMapStatus(s wgpu.BufferMapAsyncStatus) hal.MapStatus {
	if s == wgpu.BufferMapAsyncStatusSuccess {
		return hal.MapStatusSuccess
	}
	return hal.MapStatusError
}

// surfaceStatusFromError classifies a GetCurrentTexture failure.
// The binding reports the acquire status only through the error text.
func surfaceStatusFromError(err error) hal.SurfaceStatus {
	if err == nil {
		return hal.SurfaceStatusSuccess
	}
	msg := strings.ToLower(strings.ReplaceAll(err.Error(), " ", ""))
	switch {
	case strings.Contains(msg, "devicelost"):
		return hal.SurfaceStatusDeviceLost
	case strings.Contains(msg, "outdated"):
		return hal.SurfaceStatusOutdated
	case strings.Contains(msg, "lost"):
		return hal.SurfaceStatusLost
	case strings.Contains(msg, "timeout"):
		return hal.SurfaceStatusTimeout
	case strings.Contains(msg, "outofmemory"):
		return hal.SurfaceStatusOutOfMemory
	}
	return hal.SurfaceStatusError
}

// limitsFrom starts from the WebGPU default limits and applies every defined hal limit the binding exposes.
func limitsFrom(l hal.Limits) wgpu.Limits {
	limits := wgpu.DefaultLimits()
	if l.MaxTextureDimension2D != hal.LimitU32Undefined {
		limits.MaxTextureDimension2D = l.MaxTextureDimension2D
	}
	if l.MaxBindGroups != hal.LimitU32Undefined {
		limits.MaxBindGroups = l.MaxBindGroups
	}
	if l.MaxVertexBuffers != hal.LimitU32Undefined {
		limits.MaxVertexBuffers = l.MaxVertexBuffers
	}
	if l.MaxBufferSize != hal.LimitU64Undefined {
		limits.MaxBufferSize = l.MaxBufferSize
	}
	return limits
}
