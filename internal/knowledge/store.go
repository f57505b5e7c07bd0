// Package knowledge persists the service's activity log, model registry and
// user-corrected mappings in a sqlite database.
package knowledge

import (
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/logging"
)

// Interface abstracts the knowledge base so handlers can be tested against
// a store opened on a throwaway database.
type Interface interface {
	Open() error
	Close() error

	RegisterModel(record *ModelRecord) error
	LatestModel() (*ModelRecord, error)
	NextVersion() (int, error)
	Models() ([]ModelRecord, error)

	AddActivity(activityType, message string) error
	RecentActivity(limit int) ([]Activity, error)

	SaveUserMappings(mappings []UserMapping) error
	UserMappings() ([]UserMapping, error)
	UserMappingCount() (int64, error)

	AddValidationRun(run *ValidationRun) error

	SetState(key, value string) error
	GetState(key string) (string, error)

	Stats() (*Stats, error)
}

// Store implements Interface using a GORM sqlite database.
type Store struct {
	DB     *gorm.DB
	path   string
	logger *slog.Logger
}

// New creates a store for the sqlite database at path.
func New(path string) *Store {
	logger := logging.ForService("knowledge")
	if logger == nil {
		logger = slog.Default().With("service", "knowledge")
	}
	return &Store{path: path, logger: logger}
}

// Open connects to the database and migrates the schema.
func (s *Store) Open() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return errors.Newf("failed to open knowledge database: %w", err).
			Component("knowledge").
			Category(errors.CategoryDatabase).
			Context("path", s.path).
			Build()
	}
	s.DB = db

	if err := db.AutoMigrate(&ModelRecord{}, &Activity{}, &UserMapping{}, &ValidationRun{}, &StateEntry{}); err != nil {
		return errors.Newf("failed to migrate knowledge schema: %w", err).
			Component("knowledge").
			Category(errors.CategoryDatabase).
			Build()
	}

	s.logger.Info("knowledge database ready", "path", s.path)
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) dbError(op string, err error) error {
	return errors.Newf("%s: %w", op, err).
		Component("knowledge").
		Category(errors.CategoryDatabase).
		Build()
}

// RegisterModel appends a model registry row.
func (s *Store) RegisterModel(record *ModelRecord) error {
	if err := s.DB.Create(record).Error; err != nil {
		return s.dbError("registering model", err)
	}
	return nil
}

// LatestModel returns the most recently registered model, or nil when the
// registry is empty.
func (s *Store) LatestModel() (*ModelRecord, error) {
	var record ModelRecord
	err := s.DB.Order("version DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.dbError("loading latest model", err)
	}
	return &record, nil
}

// NextVersion returns the version number the next trained model receives.
func (s *Store) NextVersion() (int, error) {
	latest, err := s.LatestModel()
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 1, nil
	}
	return latest.Version + 1, nil
}

// Models returns the full model registry, oldest first.
func (s *Store) Models() ([]ModelRecord, error) {
	var records []ModelRecord
	if err := s.DB.Order("version ASC").Find(&records).Error; err != nil {
		return nil, s.dbError("listing models", err)
	}
	return records, nil
}

// AddActivity appends an entry to the activity feed.
func (s *Store) AddActivity(activityType, message string) error {
	activity := Activity{Time: time.Now().UTC(), Type: activityType, Message: message}
	if err := s.DB.Create(&activity).Error; err != nil {
		return s.dbError("recording activity", err)
	}
	return nil
}

// RecentActivity returns the newest entries first, capped at limit.
func (s *Store) RecentActivity(limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	var activities []Activity
	if err := s.DB.Order("time DESC, id DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, s.dbError("listing activity", err)
	}
	return activities, nil
}

// SaveUserMappings persists a batch of user-corrected mappings.
func (s *Store) SaveUserMappings(mappings []UserMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	if err := s.DB.Create(&mappings).Error; err != nil {
		return s.dbError("saving user mappings", err)
	}
	return nil
}

// UserMappings returns every saved corrected mapping, oldest first.
func (s *Store) UserMappings() ([]UserMapping, error) {
	var mappings []UserMapping
	if err := s.DB.Order("id ASC").Find(&mappings).Error; err != nil {
		return nil, s.dbError("listing user mappings", err)
	}
	return mappings, nil
}

// UserMappingCount returns the total number of saved corrected mappings.
func (s *Store) UserMappingCount() (int64, error) {
	var count int64
	if err := s.DB.Model(&UserMapping{}).Count(&count).Error; err != nil {
		return 0, s.dbError("counting user mappings", err)
	}
	return count, nil
}

// AddValidationRun stores a validation summary for a model version.
func (s *Store) AddValidationRun(run *ValidationRun) error {
	if err := s.DB.Create(run).Error; err != nil {
		return s.dbError("recording validation run", err)
	}
	return nil
}

// SetState stores a state value under key.
func (s *Store) SetState(key, value string) error {
	entry := StateEntry{Key: key, Value: value}
	if err := s.DB.Save(&entry).Error; err != nil {
		return s.dbError("saving state", err)
	}
	return nil
}

// GetState returns the state value for key, empty when unset.
func (s *Store) GetState(key string) (string, error) {
	var entry StateEntry
	err := s.DB.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", s.dbError("loading state", err)
	}
	return entry.Value, nil
}

// Stats aggregates the snapshot served by the knowledge endpoint: model
// count, saved mapping total, average accuracy across models that have an
// estimate, and the last training time.
func (s *Store) Stats() (*Stats, error) {
	records, err := s.Models()
	if err != nil {
		return nil, err
	}
	mappings, err := s.UserMappingCount()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Models:        int64(len(records)),
		Mappings:      mappings,
		ModelRegistry: records,
	}

	var sum float64
	var n int
	for i := range records {
		if records[i].AccuracyEstimate != nil {
			sum += *records[i].AccuracyEstimate
			n++
		}
	}
	if n > 0 {
		avg := sum / float64(n)
		stats.Accuracy = &avg
	}
	if len(records) > 0 {
		stats.LastUpdated = &records[len(records)-1].TrainedAt
	}

	return stats, nil
}
