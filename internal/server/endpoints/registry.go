package endpoints

import (
	"github.com/heavyclick/autoballoon-sub001/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct{}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Drawing endpoints
		&UploadDrawingEndpoint{},
		&ListDrawingsEndpoint{},
		&GetDrawingEndpoint{},
		&DeleteDrawingEndpoint{},

		// Page endpoints
		&ListPagesEndpoint{},
		&PageImageEndpoint{},

		// Dimension endpoints
		&ListDimensionsEndpoint{},
		&EditDimensionEndpoint{},
		&DeleteDimensionEndpoint{},
		&HitTestEndpoint{},
		&CropEndpoint{},

		// Sampling endpoints
		&SamplingPlanEndpoint{},

		// Job endpoints
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
	}
}
