// Package artifact persists trained models as versioned opaque blobs and
// caches loaded models per artifact.
package artifact

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/logging"
	"github.com/clinmap/clinmap-go/internal/training"
)

// Artifact layout: a fixed magic, a format version byte, then a gob stream
// of the model bundle. The format version guards against reading artifacts
// written by an incompatible build.
var artifactMagic = []byte("CLINMAP")

const artifactVersion byte = 1

func init() {
	gob.Register(&training.Forest{})
}

// Store reads and writes model artifacts under a fixed directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Newf("creating model directory %s: %w", dir, err).
			Component("artifact").
			Category(errors.CategoryFileIO).
			Build()
	}
	logger := logging.ForService("artifact")
	if logger == nil {
		logger = slog.Default().With("service", "artifact")
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Path returns the artifact path for a registry version number.
func (s *Store) Path(version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("model_v%d.bin", version))
}

// Save writes the model as the given registry version and returns the
// artifact path. The file is written to a temp name and renamed so readers
// only ever observe complete artifacts.
func (s *Store) Save(m *training.Model, version int) (string, error) {
	var buf bytes.Buffer
	buf.Write(artifactMagic)
	buf.WriteByte(artifactVersion)
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return "", errors.Newf("encoding model artifact: %w", err).
			Component("artifact").
			Category(errors.CategoryModelSave).
			Build()
	}

	path := s.Path(version)
	tmp, err := os.CreateTemp(s.dir, "model-*.tmp")
	if err != nil {
		return "", errors.Newf("creating temp artifact: %w", err).
			Component("artifact").
			Category(errors.CategoryModelSave).
			Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Newf("writing model artifact: %w", err).
			Component("artifact").
			Category(errors.CategoryModelSave).
			Build()
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.Newf("closing model artifact: %w", err).
			Component("artifact").
			Category(errors.CategoryModelSave).
			Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errors.Newf("publishing model artifact: %w", err).
			Component("artifact").
			Category(errors.CategoryModelSave).
			Build()
	}

	s.logger.Info("model artifact saved", "path", path, "bytes", buf.Len())
	return path, nil
}

// Load reads and decodes an artifact. A missing file maps to
// ModelUnavailable so callers can distinguish "never trained" from a
// corrupt artifact.
func (s *Store) Load(path string) (*training.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf("%w: artifact %s missing", errors.ErrModelUnavailable, path).
				Component("artifact").
				Category(errors.CategoryModelLoad).
				Build()
		}
		return nil, errors.Newf("reading model artifact %s: %w", path, err).
			Component("artifact").
			Category(errors.CategoryModelLoad).
			Build()
	}

	if len(data) < len(artifactMagic)+1 || !bytes.Equal(data[:len(artifactMagic)], artifactMagic) {
		return nil, errors.Newf("artifact %s is not a model bundle", path).
			Component("artifact").
			Category(errors.CategoryModelLoad).
			Build()
	}
	if version := data[len(artifactMagic)]; version != artifactVersion {
		return nil, errors.Newf("artifact %s has unsupported format version %d", path, version).
			Component("artifact").
			Category(errors.CategoryModelLoad).
			Build()
	}

	var m training.Model
	payload := data[len(artifactMagic)+1:]
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&m); err != nil {
		return nil, errors.Newf("decoding model artifact %s: %w", path, err).
			Component("artifact").
			Category(errors.CategoryModelLoad).
			Build()
	}

	s.logger.Debug("model artifact loaded", "path", path, "samples", m.Metadata.TrainSamples)
	return &m, nil
}
