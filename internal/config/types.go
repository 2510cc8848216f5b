package config

import (
	"github.com/alexisbeaulieu97/exportrun/internal/domain/export"
)

// DefaultMaxFileNameLength applies when a run does not set max_file_name_length.
const DefaultMaxFileNameLength = 100

// RunSettings is the YAML document describing one export run.
type RunSettings struct {
	Version           string         `yaml:"version" validate:"required,semver"`
	Name              string         `yaml:"name" validate:"required,min=1,max=100"`
	Description       string         `yaml:"description,omitempty"`
	Folder            string         `yaml:"folder" validate:"required,abs_path"`
	FileNamePattern   string         `yaml:"file_name_pattern" validate:"required,max=255"`
	FileExtension     string         `yaml:"file_extension,omitempty" validate:"omitempty,file_ext"`
	MaxFileNameLength int            `yaml:"max_file_name_length,omitempty" validate:"min=0,max=255"`
	LanguageID        int            `yaml:"language_id,omitempty" validate:"min=0"`
	Store             map[string]any `yaml:"store,omitempty"`
	Customer          map[string]any `yaml:"customer,omitempty"`
	Currency          map[string]any `yaml:"currency,omitempty"`
	Configuration     map[string]any `yaml:"configuration,omitempty"`
	Logging           Logging        `yaml:"logging,omitempty"`
}

// Logging holds logger settings for the run.
type Logging struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
}

// ApplyDefaults fills unset optional values.
func (s *RunSettings) ApplyDefaults() {
	if s.MaxFileNameLength == 0 {
		s.MaxFileNameLength = DefaultMaxFileNameLength
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
}

// ContextOptions maps the settings onto execution context options. The
// caller supplies cancellation and logging.
func (s *RunSettings) ContextOptions() export.Options {
	return export.Options{
		Folder:            s.Folder,
		FileNamePattern:   s.FileNamePattern,
		FileExtension:     s.FileExtension,
		MaxFileNameLength: s.MaxFileNameLength,
		LanguageID:        s.LanguageID,
		Store:             export.Record(s.Store),
		Customer:          export.Record(s.Customer),
		Currency:          export.Record(s.Currency),
		ConfigurationData: s.Configuration,
	}
}
