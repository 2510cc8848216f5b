package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/exportrun/internal/domain/export"
	apperrors "github.com/alexisbeaulieu97/exportrun/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("abs_path", func(fl validator.FieldLevel) bool {
			return filepath.IsAbs(fl.Field().String())
		})

		// An extension starts with a dot and survives file name sanitizing unchanged.
		_ = v.RegisterValidation("file_ext", func(fl validator.FieldLevel) bool {
			ext := fl.Field().String()
			return len(ext) > 1 && strings.HasPrefix(ext, ".") && export.SanitizeFileName(ext) == ext
		})

		validateInst = v
	})

	return validateInst
}

// ValidateRunSettings performs schema and cross-field validation.
func ValidateRunSettings(s *RunSettings) error {
	if s == nil {
		return apperrors.NewValidationError("settings", "run settings are nil", nil)
	}

	if err := validatorInstance().Struct(s); err != nil {
		return convertValidationError(err)
	}

	if !strings.Contains(s.FileNamePattern, export.FileNumberPlaceholder) {
		return apperrors.NewValidationError("file_name_pattern",
			fmt.Sprintf("pattern must contain %s so segment files do not collide", export.FileNumberPlaceholder), nil)
	}

	if err := checkFileNumberSurvives(s); err != nil {
		return err
	}

	return nil
}

// checkFileNumberSurvives rejects a max_file_name_length that cuts into the
// file number. Truncation only removes a suffix, so if the last digit of
// some placeholder survives, all of its digits do, and indices 0 and 1
// resolve to different names.
func checkFileNumberSurvives(s *RunSettings) error {
	first, err := export.ResolveFileName(s.FileNamePattern, 0, s.FileExtension, s.MaxFileNameLength)
	if err != nil {
		return apperrors.NewValidationError("file_name_pattern", err.Error(), err)
	}
	second, err := export.ResolveFileName(s.FileNamePattern, 1, s.FileExtension, s.MaxFileNameLength)
	if err != nil {
		return apperrors.NewValidationError("file_name_pattern", err.Error(), err)
	}
	if first == second {
		full, _ := export.ResolveFileName(s.FileNamePattern, 0, "", 0)
		return apperrors.NewValidationError("max_file_name_length",
			fmt.Sprintf("%d truncates the file number of %q, every segment would be named %s; use at least %d",
				s.MaxFileNameLength, full, first, utf8.RuneCountInString(full)), nil)
	}
	return nil
}

// convertValidationError normalizes validator errors into validation errors.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := fieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return apperrors.NewValidationError(field, msg, err)
	}

	return apperrors.NewValidationError("settings", err.Error(), err)
}

// fieldName drops the root struct name from the namespace.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}
