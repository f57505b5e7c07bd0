// config.go: settings struct and functions to load the application settings.
package conf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// LogSettings contains settings for the rotating service log files.
type LogSettings struct {
	Enabled    bool   // true to write per-service log files
	Path       string // directory for log files
	MaxSize    int    // max size of a log file in megabytes before rotation
	MaxBackups int    // number of rotated files to keep
	MaxAge     int    // days to retain rotated files
}

// ServerSettings contains settings for the HTTP service.
type ServerSettings struct {
	Host string // interface to listen on
	Port int    // port to listen on
}

// ClassifierSettings contains knobs for the predictive mapping classifier.
type ClassifierSettings struct {
	Trees int   // number of bagged trees per target
	Seed  int64 // random seed for deterministic training
}

// StorageSettings contains filesystem paths used by the service.
type StorageSettings struct {
	UploadPath   string // directory for uploaded XML documents
	ModelPath    string // directory for persisted model artifacts
	KnowledgeDB  string // path to the knowledge base sqlite file
	ExportedName string // filename offered for exported ODM downloads
}

// Settings is the top-level configuration for the mapping service.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Name string      // service instance name
		Log  LogSettings // log file settings
	}

	Server     ServerSettings
	Classifier ClassifierSettings
	Storage    StorageSettings

	// Sponsors maps a sponsor identifier to its schema profile.
	Sponsors map[string]SchemaProfile
}

// settingsMutex serializes Load calls; viper's configuration state is a
// package-level singleton.
var settingsMutex sync.Mutex

// Load reads the configuration file and environment variables into a
// Settings instance and validates it.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Sponsors configured partially in the file inherit nothing; merge the
	// compiled-in profiles for any sponsor the file does not mention.
	mergeDefaultProfiles(settings)

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/clinmap")

	viper.SetEnvPrefix("clinmap")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults cover a local run.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}
