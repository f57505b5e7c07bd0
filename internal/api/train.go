package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinmap/clinmap-go/internal/extract"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/training"
)

// TrainResponse is the JSON body of a successful training run.
type TrainResponse struct {
	Message       string   `json:"message"`
	ModelVersion  int      `json:"model_version"`
	ModelID       string   `json:"model_id"`
	TrainSamples  int      `json:"train_samples"`
	MappingsCount int      `json:"mappings_count"`
	Accuracy      *float64 `json:"accuracy"`
}

// Train handles POST /api/v1/train. It accepts an ODM document and a
// ViewMapping document as multipart uploads, joins them into a training
// table, fits a fresh model, persists the artifact and registers the new
// version in the knowledge base.
func (c *Controller) Train(ctx echo.Context) error {
	start := time.Now()

	fail := func(err error) error {
		if c.metrics != nil {
			c.metrics.Engine.TrainTotal.WithLabelValues("error").Inc()
		}
		return c.HandleError(ctx, err)
	}

	profile, err := c.profileFor(ctx)
	if err != nil {
		return fail(err)
	}

	odmData, odmPath, err := c.readUpload(ctx, "odm_file")
	if err != nil {
		return fail(err)
	}
	viewData, viewPath, err := c.readUpload(ctx, "viewmap_file")
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
	corpus, err := extract.ViewEntriesFromBytes(viewData, viewPath, &profile)
	if err != nil {
		if c.metrics != nil {
			c.metrics.Engine.DocumentParseErrors.WithLabelValues("viewmap").Inc()
		}
		return fail(err)
	}

	table, err := training.BuildTrainingTable(assocs, corpus)
	if err != nil {
		return fail(err)
	}

	model, err := training.Fit(table, corpus, training.Options{
		Trees: c.Settings.Classifier.Trees,
		Seed:  c.Settings.Classifier.Seed,
	})
	if err != nil {
		return fail(err)
	}

	version, err := c.KB.NextVersion()
	if err != nil {
		return fail(err)
	}
	artifactPath, err := c.Artifacts.Save(model, version)
	if err != nil {
		return fail(err)
	}

	record := &knowledge.ModelRecord{
		Version:          version,
		ArtifactID:       model.Metadata.ID,
		ArtifactPath:     artifactPath,
		TrainedAt:        model.Metadata.TrainedAt,
		ODMFilename:      filepath.Base(odmPath),
		ViewMapFilename:  filepath.Base(viewPath),
		TrainSamples:     model.Metadata.TrainSamples,
		MappingsCount:    model.Metadata.MappingsCount,
		AccuracyEstimate: model.Metadata.AccuracyEstimate,
		Notes:            model.Metadata.Notes,
	}
	if err := c.KB.RegisterModel(record); err != nil {
		return fail(err)
	}
	if err := c.KB.SetState(knowledge.StateLatestODM, odmPath); err != nil {
		c.logger.Warn("failed to record latest document", "error", err)
	}

	c.Models.Put(artifactPath, model)
	c.recordActivity(knowledge.ActivityTrain, "model v%d trained on %d samples", version, model.Metadata.TrainSamples)

	if c.metrics != nil {
		c.metrics.Engine.TrainTotal.WithLabelValues("success").Inc()
		c.metrics.Engine.TrainDuration.Observe(time.Since(start).Seconds())
		c.metrics.Engine.TrainingSetSize.Set(float64(model.Metadata.TrainSamples))
		c.metrics.Engine.ModelVersion.Set(float64(version))
		if model.Metadata.AccuracyEstimate != nil {
			c.metrics.Engine.ModelAccuracy.Set(*model.Metadata.AccuracyEstimate)
		}
	}

	c.logger.Info("model trained",
		"version", version,
		"samples", model.Metadata.TrainSamples,
		"mappings", model.Metadata.MappingsCount,
		"duration_ms", time.Since(start).Milliseconds())

	return ctx.JSON(http.StatusOK, TrainResponse{
		Message:       "model trained successfully",
		ModelVersion:  version,
		ModelID:       model.Metadata.ID,
		TrainSamples:  model.Metadata.TrainSamples,
		MappingsCount: model.Metadata.MappingsCount,
		Accuracy:      model.Metadata.AccuracyEstimate,
	})
}
