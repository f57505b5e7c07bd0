package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/knowledge"
)

// SaveMappingsRequest is the JSON body accepted by the mappings endpoint.
type SaveMappingsRequest struct {
	ODMFilename string                  `json:"odm_filename"`
	Mappings    []knowledge.UserMapping `json:"mappings"`
}

// SaveMappingsResponse reports how many corrected mappings were stored.
type SaveMappingsResponse struct {
	Message string `json:"message"`
	Saved   int    `json:"saved"`
}

// SaveMappings handles POST /api/v1/mappings. Reviewers post the corrected
// mapping set here after inspecting predictions; the rows feed later exports
// and the knowledge statistics.
func (c *Controller) SaveMappings(ctx echo.Context) error {
	var req SaveMappingsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Mappings) == 0 {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "mappings cannot be empty"})
	}
	for i := range req.Mappings {
		m := &req.Mappings[i]
		if m.StudyEventOID == "" || m.ItemOID == "" || m.TargetVisitID == "" || m.TargetAttributeID == "" {
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "every mapping needs StudyEventOID, ItemOID, IMPACTVisitID and IMPACTAttributeID",
			})
		}
		m.ID = 0
		m.CreatedAt = time.Time{}
		if m.ODMFilename == "" {
			m.ODMFilename = req.ODMFilename
		}
	}

	if err := c.KB.SaveUserMappings(req.Mappings); err != nil {
		return c.HandleError(ctx, errors.New(err).
			Component("api").
			Category(errors.CategoryDatabase).
			Build())
	}

	c.recordActivity(knowledge.ActivitySave, "%d corrected mappings saved", len(req.Mappings))
	if c.metrics != nil {
		c.metrics.Knowledge.OperationTotal.WithLabelValues("save_mappings").Inc()
		if count, err := c.KB.UserMappingCount(); err == nil {
			c.metrics.Knowledge.SavedMappings.Set(float64(count))
		}
	}

	c.logger.Info("corrected mappings saved", "count", len(req.Mappings))
	return ctx.JSON(http.StatusOK, SaveMappingsResponse{
		Message: "mappings saved",
		Saved:   len(req.Mappings),
	})
}
