// Package api implements the HTTP interface of the mapping service.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/clinmap/clinmap-go/internal/artifact"
	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/logging"
	"github.com/clinmap/clinmap-go/internal/observability"
	"github.com/clinmap/clinmap-go/internal/training"
)

// modelCacheExpiry bounds how long an idle loaded model stays in memory.
const modelCacheExpiry = 30 * time.Minute

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	Settings  *conf.Settings
	KB        knowledge.Interface
	Artifacts *artifact.Store
	Models    *artifact.Cache

	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Controller with all routes registered on a fresh echo
// instance.
func New(settings *conf.Settings, kb knowledge.Interface, artifacts *artifact.Store, metrics *observability.Metrics) (*Controller, error) {
	if settings == nil {
		return nil, errors.Newf("settings cannot be nil").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	logger := logging.ForService("api")
	if logger == nil {
		logger = slog.Default().With("service", "api")
	}

	c := &Controller{
		Echo:      echo.New(),
		Settings:  settings,
		KB:        kb,
		Artifacts: artifacts,
		Models:    artifact.NewCache(modelCacheExpiry),
		metrics:   metrics,
		logger:    logger,
	}

	c.Echo.HideBanner = true
	c.Echo.Use(middleware.Recover())

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group = c.Echo.Group("/api/v1")

	c.Group.POST("/train", c.Train)
	c.Group.POST("/predict", c.Predict)
	c.Group.POST("/validate", c.Validate)
	c.Group.POST("/mappings", c.SaveMappings)
	c.Group.POST("/export", c.Export)
	c.Group.GET("/export", c.Export)

	c.Group.GET("/model/status", c.ModelStatus)
	c.Group.GET("/knowledge/stats", c.KnowledgeStats)
	c.Group.GET("/activity", c.Activity)

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	c.Echo.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Start begins serving on the configured host and port. It blocks until the
// server stops.
func (c *Controller) Start() error {
	addr := fmt.Sprintf("%s:%d", c.Settings.Server.Host, c.Settings.Server.Port)
	c.logger.Info("starting HTTP server", "addr", addr)
	return c.Echo.Start(addr)
}

// Shutdown gracefully stops the HTTP server.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

// ErrorResponse is the JSON body returned for all failed requests.
type ErrorResponse struct {
	Error    string         `json:"error"`
	Category string         `json:"category,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// HandleError maps engine errors onto HTTP status codes: malformed documents
// and unknown sponsors are client errors, an empty training join is an
// unprocessable upload, and a missing model is a conflict with the service
// state rather than a fault in the request.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrMalformedDocument), errors.Is(err, errors.ErrUnknownProfile):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrEmptyTrainingSet):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrModelUnavailable):
		status = http.StatusConflict
	}

	resp := ErrorResponse{Error: err.Error()}
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		resp.Category = enhanced.GetCategory()
		resp.Context = enhanced.GetContext()
	}

	if status >= http.StatusInternalServerError {
		c.logger.Error("request failed", "path", ctx.Path(), "error", err)
	} else {
		c.logger.Debug("request rejected", "path", ctx.Path(), "status", status, "error", err)
	}
	return ctx.JSON(status, resp)
}

// readUpload reads a multipart file field into memory and persists a copy
// under the upload directory. It returns the content and the stored path.
func (c *Controller) readUpload(ctx echo.Context, field string) ([]byte, string, error) {
	fileHeader, err := ctx.FormFile(field)
	if err != nil {
		return nil, "", errors.Newf("missing upload field %q: %w", field, err).
			Component("api").
			Category(errors.CategoryHTTP).
			Build()
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, "", errors.Newf("opening upload %q: %w", fileHeader.Filename, err).
			Component("api").
			Category(errors.CategoryHTTP).
			Build()
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", errors.Newf("reading upload %q: %w", fileHeader.Filename, err).
			Component("api").
			Category(errors.CategoryHTTP).
			Build()
	}

	if err := os.MkdirAll(c.Settings.Storage.UploadPath, 0o755); err != nil {
		return nil, "", errors.Newf("creating upload directory: %w", err).
			Component("api").
			Category(errors.CategoryFileIO).
			Build()
	}
	stored := filepath.Join(c.Settings.Storage.UploadPath, filepath.Base(fileHeader.Filename))
	if err := os.WriteFile(stored, data, 0o644); err != nil {
		return nil, "", errors.Newf("storing upload %q: %w", fileHeader.Filename, err).
			Component("api").
			Category(errors.CategoryFileIO).
			Build()
	}

	return data, stored, nil
}

// profileFor resolves the sponsor form or query value to a schema profile,
// defaulting to the unsuffixed profile.
func (c *Controller) profileFor(ctx echo.Context) (conf.SchemaProfile, error) {
	sponsor := ctx.FormValue("sponsor")
	if sponsor == "" {
		sponsor = ctx.QueryParam("sponsor")
	}
	if sponsor == "" {
		sponsor = "default"
	}
	return c.Settings.Profile(sponsor)
}

// resolveModel loads the model for a registry version, 0 meaning latest. The
// per-path cache makes repeated predict and validate calls cheap.
func (c *Controller) resolveModel(version int) (*training.Model, *knowledge.ModelRecord, error) {
	var record *knowledge.ModelRecord
	var err error
	if version <= 0 {
		record, err = c.KB.LatestModel()
	} else {
		record, err = c.modelByVersion(version)
	}
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, errors.New(errors.ErrModelUnavailable).
			Component("api").
			Category(errors.CategoryModelLoad).
			Build()
	}

	path := record.ArtifactPath
	if path == "" {
		path = c.Artifacts.Path(record.Version)
	}

	if m, ok := c.Models.Get(path); ok {
		return m, record, nil
	}
	m, err := c.Artifacts.Load(path)
	if err != nil {
		return nil, nil, err
	}
	c.Models.Put(path, m)
	return m, record, nil
}

func (c *Controller) modelByVersion(version int) (*knowledge.ModelRecord, error) {
	records, err := c.KB.Models()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Version == version {
			return &records[i], nil
		}
	}
	return nil, nil
}

// recordActivity appends to the activity feed, logging instead of failing
// the request when the write does not succeed.
func (c *Controller) recordActivity(activityType, format string, args ...any) {
	if c.KB == nil {
		return
	}
	if err := c.KB.AddActivity(activityType, fmt.Sprintf(format, args...)); err != nil {
		c.logger.Warn("failed to record activity", "type", activityType, "error", err)
	}
}
