// entities.go: gorm entities for the knowledge base.
package knowledge

import "time"

// ModelRecord is one row of the model registry, appended on every
// successful training run.
type ModelRecord struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	Version          int       `gorm:"uniqueIndex" json:"version"`
	ArtifactID       string    `json:"artifact_id"`
	ArtifactPath     string    `json:"-"`
	TrainedAt        time.Time `json:"trained_at"`
	ODMFilename      string    `json:"odm_filename"`
	ViewMapFilename  string    `json:"viewmap_filename"`
	TrainSamples     int       `json:"train_samples"`
	MappingsCount    int       `json:"mappings_count"`
	AccuracyEstimate *float64  `json:"accuracy_estimate"`
	Notes            string    `json:"notes"`
}

// Activity is one entry of the knowledge base activity feed.
type Activity struct {
	ID      uint      `gorm:"primaryKey" json:"-"`
	Time    time.Time `gorm:"index" json:"time"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
}

// Activity types recorded by the service.
const (
	ActivityTrain    = "train"
	ActivityPredict  = "predict"
	ActivityValidate = "validate"
	ActivitySave     = "save_mappings"
	ActivityExport   = "export"
)

// UserMapping is a user-corrected mapping saved for later export.
type UserMapping struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	CreatedAt         time.Time `json:"-"`
	ODMFilename       string    `gorm:"index" json:"odm_filename"`
	StudyEventOID     string    `json:"StudyEventOID"`
	ItemOID           string    `json:"ItemOID"`
	TargetVisitID     string    `json:"IMPACTVisitID"`
	TargetAttributeID string    `json:"IMPACTAttributeID"`
}

// ValidationRun summarizes one validation call against a model version.
type ValidationRun struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	ModelVersion int       `gorm:"index" json:"model_version"`
	Time         time.Time `json:"time"`
	Filename     string    `json:"file"`
	Total        int       `json:"total"`
	Wrong        int       `json:"wrong"`
	Accuracy     *float64  `json:"accuracy"`
}

// StateEntry is a small key-value row for service state that is not a feed:
// the latest uploaded ODM document and the last export time.
type StateEntry struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// State keys.
const (
	StateLatestODM  = "latest_odm"
	StateLastExport = "last_export"
)

// Stats is the aggregate snapshot served by the knowledge endpoint.
type Stats struct {
	Models        int64         `json:"models"`
	Mappings      int64         `json:"mappings"`
	Accuracy      *float64      `json:"accuracy"`
	LastUpdated   *time.Time    `json:"last_updated"`
	ModelRegistry []ModelRecord `json:"models_list"`
}
