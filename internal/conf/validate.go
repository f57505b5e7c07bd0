// validate.go: explicit settings validation run after every Load.
package conf

import (
	"errors"
	"fmt"
)

// ValidateSettings validates the entire settings struct and aggregates all
// violations into a single error.
func ValidateSettings(settings *Settings) error {
	var errs []error

	if settings.Server.Port < 1 || settings.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", settings.Server.Port))
	}

	if settings.Classifier.Trees < 1 {
		errs = append(errs, fmt.Errorf("classifier trees must be positive, got %d", settings.Classifier.Trees))
	}

	if settings.Storage.UploadPath == "" {
		errs = append(errs, errors.New("storage upload path must not be empty"))
	}
	if settings.Storage.ModelPath == "" {
		errs = append(errs, errors.New("storage model path must not be empty"))
	}
	if settings.Storage.KnowledgeDB == "" {
		errs = append(errs, errors.New("knowledge database path must not be empty"))
	}

	for sponsor := range settings.Sponsors {
		profile := settings.Sponsors[sponsor]
		if err := profile.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sponsor %q: %w", sponsor, err))
		}
	}

	if settings.Main.Log.Enabled && settings.Main.Log.Path == "" {
		errs = append(errs, errors.New("log path must not be empty when file logging is enabled"))
	}

	return errors.Join(errs...)
}
