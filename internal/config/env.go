package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"

	apperrors "github.com/alexisbeaulieu97/exportrun/pkg/errors"
)

// Environment variables that override run settings.
const (
	EnvFolder            = "EXPORTRUN_FOLDER"
	EnvMaxFileNameLength = "EXPORTRUN_MAX_FILE_NAME_LENGTH"
	EnvLanguageID        = "EXPORTRUN_LANGUAGE_ID"
	EnvLogLevel          = "EXPORTRUN_LOG_LEVEL"
)

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is only an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apperrors.NewParseError(path, 0, err)
	}
	return nil
}

// ApplyEnv overrides settings with EXPORTRUN_* variables found through lookup.
func ApplyEnv(s *RunSettings, lookup LookupFunc) error {
	if s == nil || lookup == nil {
		return nil
	}

	if v, ok := lookup(EnvFolder); ok && v != "" {
		s.Folder = v
	}
	if v, ok := lookup(EnvMaxFileNameLength); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewValidationError("max_file_name_length", fmt.Sprintf("%s must be an integer", EnvMaxFileNameLength), err)
		}
		s.MaxFileNameLength = n
	}
	if v, ok := lookup(EnvLanguageID); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewValidationError("language_id", fmt.Sprintf("%s must be an integer", EnvLanguageID), err)
		}
		s.LanguageID = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		s.Logging.Level = v
	}

	return nil
}
