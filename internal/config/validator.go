package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// newValidator returns a validator that names fields by their config key and
// reports errors in English.
func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("creatable_dir", isCreatableDir); err != nil {
		return nil, nil, fmt.Errorf("failed to register creatable_dir validation: %w", err)
	}
	if err := validate.RegisterTranslation("creatable_dir", trans, func(ut ut.Translator) error {
		return ut.Add("creatable_dir", "{0} must be a directory or a path that does not exist yet", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("creatable_dir", strings.TrimPrefix(fe.Namespace(), "Config."))
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register creatable_dir translation: %w", err)
	}

	return validate, trans, nil
}

// isCreatableDir checks the SQLite data directory and the report directory.
// Both are created on first use, so a missing path is fine but a regular file is not.
func isCreatableDir(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return true
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true
	}
	if err != nil {
		return false
	}
	return info.IsDir()
}
