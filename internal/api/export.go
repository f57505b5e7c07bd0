package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/export"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/training"
)

// Export handles POST /api/v1/export. It overlays the saved corrected
// mappings onto an ODM document and returns the updated XML as a download.
// The document comes from an optional odm_file upload, falling back to the
// most recently uploaded one.
func (c *Controller) Export(ctx echo.Context) error {
	start := time.Now()

	fail := func(err error) error {
		if c.metrics != nil {
			c.metrics.Engine.ExportTotal.WithLabelValues("error").Inc()
		}
		return c.HandleError(ctx, err)
	}

	profile, err := c.profileFor(ctx)
	if err != nil {
		return fail(err)
	}

	odmData, odmPath, err := c.readUpload(ctx, "odm_file")
	if err != nil {
		// no upload: fall back to the last document this service saw
		odmPath, err = c.KB.GetState(knowledge.StateLatestODM)
		if err != nil {
			return fail(err)
		}
		if odmPath == "" {
			return fail(errors.Newf("no ODM document available: upload one or run train or predict first").
				Component("api").
				Category(errors.CategoryExport).
				Build())
		}
		odmData, err = os.ReadFile(odmPath)
		if err != nil {
			return fail(errors.Newf("reading stored document %s: %w", odmPath, err).
				Component("api").
				Category(errors.CategoryFileIO).
				Build())
		}
	}

	userMappings, err := c.KB.UserMappings()
	if err != nil {
		return fail(err)
	}
	if len(userMappings) == 0 {
		return fail(errors.Newf("no saved mappings to export").
			Component("api").
			Category(errors.CategoryExport).
			Build())
	}

	mappings := make([]training.PredictedMapping, 0, len(userMappings))
	for i := range userMappings {
		mappings = append(mappings, training.PredictedMapping{
			StudyEventOID:     userMappings[i].StudyEventOID,
			ItemOID:           userMappings[i].ItemOID,
			TargetVisitID:     userMappings[i].TargetVisitID,
			TargetAttributeID: userMappings[i].TargetAttributeID,
		})
	}

	updated, err := export.UpdateODM(odmData, mappings, &profile)
	if err != nil {
		return fail(err)
	}

	if err := c.KB.SetState(knowledge.StateLastExport, time.Now().UTC().Format(time.RFC3339)); err != nil {
		c.logger.Warn("failed to record export time", "error", err)
	}
	c.recordActivity(knowledge.ActivityExport, "document exported with %d mappings", len(mappings))

	if c.metrics != nil {
		c.metrics.Engine.ExportTotal.WithLabelValues("success").Inc()
		c.metrics.Engine.ExportDuration.Observe(time.Since(start).Seconds())
	}

	c.logger.Info("document exported", "source", odmPath, "mappings", len(mappings))

	name := c.Settings.Storage.ExportedName
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, "application/xml", updated)
}
