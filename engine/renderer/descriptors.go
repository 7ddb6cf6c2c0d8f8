package renderer

import (
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-gpu/engine/renderer/hal"
)

const (
	deviceLabel      = "oxy device"
	queueLabel       = "oxy default queue"
	depthLabel       = "depth buffer"
	multisampleLabel = "multisample buffer"
	surfaceViewLabel = "surface view"
	frameLabel       = "frame encoder"
)

// depthFormat is the format of the depth buffer created alongside the surface.
const depthFormat = hal.TextureFormatDepth24Plus

// DefaultLimits returns limits with every field left undefined so that the adapter defaults apply.
func DefaultLimits() hal.Limits {
	return hal.Limits{
		MaxTextureDimension1D:      hal.LimitU32Undefined,
		MaxTextureDimension2D:      hal.LimitU32Undefined,
		MaxTextureDimension3D:      hal.LimitU32Undefined,
		MaxTextureArrayLayers:      hal.LimitU32Undefined,
		MaxBindGroups:              hal.LimitU32Undefined,
		MaxBindingsPerBindGroup:    hal.LimitU32Undefined,
		MaxSampledTexturesPerStage: hal.LimitU32Undefined,
		MaxSamplersPerStage:        hal.LimitU32Undefined,
		MaxUniformBuffersPerStage:  hal.LimitU32Undefined,
		MaxUniformBufferBindSize:   hal.LimitU64Undefined,
		MaxStorageBufferBindSize:   hal.LimitU64Undefined,
		MaxVertexBuffers:           hal.LimitU32Undefined,
		MaxBufferSize:              hal.LimitU64Undefined,
		MaxVertexAttributes:        hal.LimitU32Undefined,
		MaxColorAttachments:        hal.LimitU32Undefined,
	}
}

// RequiredFeatures returns the optional features to request from the adapter.
// Depth clip control is always wanted and timestamp queries are wanted when GPU timing is enabled.
// Features the adapter lacks are left out with a warning, which turns GPU timing off when timestamps are missing.
//
// Parameters:
//   - adapter: the adapter that will create the device
//   - gpuTiming: whether timestamp queries are wanted
//   - logger: the logger for warnings
//
// Returns:
//   - []hal.FeatureName: the features the adapter supports out of the wanted set
func RequiredFeatures(adapter hal.Adapter, gpuTiming bool, logger *slog.Logger) []hal.FeatureName {
	wanted := []hal.FeatureName{hal.FeatureNameDepthClipControl}
	if gpuTiming {
		wanted = append(wanted, hal.FeatureNameTimestampQuery)
	}

	features := make([]hal.FeatureName, 0, len(wanted))
	for _, f := range wanted {
		if adapter.HasFeature(f) {
			features = append(features, f)
			continue
		}
		logger.Warn("adapter does not support feature", "feature", f)
	}
	return features
}

func containsFeature(features []hal.FeatureName, f hal.FeatureName) bool {
	return slices.Contains(features, f)
}

// DeviceDescriptor builds the device request with labels, undefined limits and the uncaptured error handler.
func DeviceDescriptor(features []hal.FeatureName, onError hal.ErrorCallback) hal.DeviceDescriptor {
	return hal.DeviceDescriptor{
		Label:             deviceLabel,
		QueueLabel:        queueLabel,
		RequiredFeatures:  features,
		RequiredLimits:    DefaultLimits(),
		OnUncapturedError: onError,
	}
}

// SurfaceTextureViewDescriptor describes the view created over an acquired surface texture:
// a single mip level and array layer in the texture's own format.
func SurfaceTextureViewDescriptor(format hal.TextureFormat) *hal.TextureViewDescriptor {
	return &hal.TextureViewDescriptor{
		Label:           surfaceViewLabel,
		Format:          format,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
	}
}

// DepthTextureDescriptor describes the depth buffer matching a surface of the given size and sample count.
func DepthTextureDescriptor(width, height, sampleCount uint32) hal.TextureDescriptor {
	return hal.TextureDescriptor{
		Label:         depthLabel,
		Width:         width,
		Height:        height,
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Format:        depthFormat,
		Usage:         hal.TextureUsageRenderAttachment,
	}
}

// MultisampleTextureDescriptor describes the multisampled color buffer resolved into the surface each pass.
func MultisampleTextureDescriptor(width, height uint32, format hal.TextureFormat, sampleCount uint32) hal.TextureDescriptor {
	return hal.TextureDescriptor{
		Label:         multisampleLabel,
		Width:         width,
		Height:        height,
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Format:        format,
		Usage:         hal.TextureUsageRenderAttachment,
	}
}
