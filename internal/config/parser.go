package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	apperrors "github.com/alexisbeaulieu97/exportrun/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseRunSettings loads run settings from disk, applies EXPORTRUN_*
// environment overrides and defaults, and validates the result.
func ParseRunSettings(path string) (*RunSettings, error) {
	return parseRunSettings(path, os.LookupEnv)
}

func parseRunSettings(path string, lookup LookupFunc) (*RunSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParseError(path, 0, err)
	}

	var settings RunSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, apperrors.NewParseError(path, extractLine(err), err)
	}

	if err := ApplyEnv(&settings, lookup); err != nil {
		return nil, err
	}
	settings.ApplyDefaults()

	if err := ValidateRunSettings(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
