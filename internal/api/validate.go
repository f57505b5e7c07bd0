package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/validation"
)

// ValidateResponse is the JSON body of a validation run.
type ValidateResponse struct {
	ModelVersion int                 `json:"model_version"`
	Results      []validation.Result `json:"results"`
	Summary      validation.Summary  `json:"summary"`
}

// Validate handles POST /api/v1/validate. It accepts a candidate ViewMapping
// document upload and checks every entry against the known-correct corpus of
// the requested model version, flagging non-members with per-field
// correction suggestions.
func (c *Controller) Validate(ctx echo.Context) error {
	start := time.Now()

	fail := func(err error) error {
		if c.metrics != nil {
			c.metrics.Engine.ValidationTotal.WithLabelValues("error").Inc()
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

	viewData, viewPath, err := c.readUpload(ctx, "viewmap_file")
	if err != nil {
		return fail(err)
	}

	candidates, err := extract.ViewEntriesFromBytes(viewData, viewPath, &profile)
	if err != nil {
		if c.metrics != nil {
			c.metrics.Engine.DocumentParseErrors.WithLabelValues("viewmap").Inc()
		}
		return fail(err)
	}

	model, record, err := c.resolveModel(version)
	if err != nil {
		return fail(err)
	}

	results := validation.Validate(model.Corpus, candidates)
	summary := validation.Summarize(results)

	if err := c.KB.AddValidationRun(&knowledge.ValidationRun{
		ModelVersion: record.Version,
		Time:         time.Now().UTC(),
		Filename:     filepath.Base(viewPath),
		Total:        summary.Total,
		Wrong:        summary.Wrong,
		Accuracy:     summary.Accuracy,
	}); err != nil {
		c.logger.Warn("failed to record validation run", "error", err)
	}
	c.recordActivity(knowledge.ActivityValidate, "%d of %d candidate mappings flagged against model v%d", summary.Wrong, summary.Total, record.Version)

	if c.metrics != nil {
		c.metrics.Engine.ValidationTotal.WithLabelValues("success").Inc()
		c.metrics.Engine.ValidationDuration.Observe(time.Since(start).Seconds())
	}

	c.logger.Info("validation complete",
		"model_version", record.Version,
		"candidates", summary.Total,
		"flagged", summary.Wrong)

	return ctx.JSON(http.StatusOK, ValidateResponse{
		ModelVersion: record.Version,
		Results:      results,
		Summary:      summary,
	})
}
