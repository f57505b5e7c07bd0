package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/training"
)

// PredictResponse is the JSON body of a prediction run.
type PredictResponse struct {
	ModelVersion int                         `json:"model_version"`
	Mappings     []training.PredictedMapping `json:"mappings"`
	Unmapped     []extract.AssociationRecord `json:"unmapped"`
	Count        int                         `json:"count"`
}

// Predict handles POST /api/v1/predict. It accepts an ODM document upload,
// runs the requested model version (latest when unspecified) over the
// extracted associations and returns the deduplicated predicted mappings
// plus the source pairs the model could not map.
func (c *Controller) Predict(ctx echo.Context) error {
	start := time.Now()

	fail := func(err error) error {
		if c.metrics != nil {
			c.metrics.Engine.PredictionTotal.WithLabelValues("error").Inc()
		}
		return c.HandleError(ctx, err)
	}

	profile, err := c.profileFor(ctx)
	if err != nil {
		return fail(err)
	}

	version := 0
	if raw := ctx.QueryParam("version"); raw != "" {
		if version, err = strconv.Atoi(raw); err != nil || version < 1 {
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "version must be a positive integer"})
		}
	}

	odmData, odmPath, err := c.readUpload(ctx, "odm_file")
	if err != nil {
		return fail(err)
	}

	assocs, err := extract.AssociationsFromBytes(odmData, odmPath, &profile)
	if err != nil {
		if c.metrics != nil {
			c.metrics.Engine.DocumentParseErrors.WithLabelValues("odm").Inc()
		}
		return fail(err)
	}

	model, record, err := c.resolveModel(version)
	if err != nil {
		return fail(err)
	}

	mappings := model.Predict(assocs)
	unmapped := training.Unmapped(assocs, mappings)
	if mappings == nil {
		mappings = []training.PredictedMapping{}
	}
	if unmapped == nil {
		unmapped = []extract.AssociationRecord{}
	}

	if err := c.KB.SetState(knowledge.StateLatestODM, odmPath); err != nil {
		c.logger.Warn("failed to record latest document", "error", err)
	}
	c.recordActivity(knowledge.ActivityPredict, "%d mappings predicted with model v%d", len(mappings), record.Version)

	if c.metrics != nil {
		c.metrics.Engine.PredictionTotal.WithLabelValues("success").Inc()
		c.metrics.Engine.PredictionDuration.Observe(time.Since(start).Seconds())
		c.metrics.Engine.PredictedMappings.Observe(float64(len(mappings)))
	}

	c.logger.Info("prediction complete",
		"model_version", record.Version,
		"associations", len(assocs),
		"mappings", len(mappings),
		"unmapped", len(unmapped))

	return ctx.JSON(http.StatusOK, PredictResponse{
		ModelVersion: record.Version,
		Mappings:     mappings,
		Unmapped:     unmapped,
		Count:        len(mappings),
	})
}
