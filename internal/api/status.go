package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinmap/clinmap-go/internal/knowledge"
)

// ModelStatusResponse describes the currently active model, if any.
type ModelStatusResponse struct {
	Available        bool       `json:"available"`
	Version          int        `json:"version,omitempty"`
	ModelID          string     `json:"model_id,omitempty"`
	TrainedAt        *time.Time `json:"trained_at,omitempty"`
	TrainSamples     int        `json:"train_samples,omitempty"`
	MappingsCount    int        `json:"mappings_count,omitempty"`
	AccuracyEstimate *float64   `json:"accuracy_estimate,omitempty"`
}

// ModelStatus handles GET /api/v1/model/status.
func (c *Controller) ModelStatus(ctx echo.Context) error {
	record, err := c.KB.LatestModel()
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if record == nil {
		return ctx.JSON(http.StatusOK, ModelStatusResponse{Available: false})
	}

	trainedAt := record.TrainedAt
	return ctx.JSON(http.StatusOK, ModelStatusResponse{
		Available:        true,
		Version:          record.Version,
		ModelID:          record.ArtifactID,
		TrainedAt:        &trainedAt,
		TrainSamples:     record.TrainSamples,
		MappingsCount:    record.MappingsCount,
		AccuracyEstimate: record.AccuracyEstimate,
	})
}

// KnowledgeStats handles GET /api/v1/knowledge/stats.
func (c *Controller) KnowledgeStats(ctx echo.Context) error {
	stats, err := c.KB.Stats()
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if c.metrics != nil {
		c.metrics.Knowledge.RegisteredModels.Set(float64(stats.Models))
		c.metrics.Knowledge.SavedMappings.Set(float64(stats.Mappings))
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Activity handles GET /api/v1/activity. The limit query parameter caps the
// number of entries returned, newest first.
func (c *Controller) Activity(ctx echo.Context) error {
	limit := 20
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	activities, err := c.KB.RecentActivity(limit)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	if activities == nil {
		activities = []knowledge.Activity{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"activities": activities,
		"count":      len(activities),
	})
}
