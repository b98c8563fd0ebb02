package skill

import (
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	nameRe    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	versionRe = regexp.MustCompile(`^\d+(\.\d+)*$`)
)

// ValidationError reports a single invalid metadata field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the front matter against the pack naming rules.
func (m Metadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 64),
			validation.Match(nameRe).Error("must be lowercase letters, digits and hyphens"),
		),
		validation.Field(&m.Description,
			validation.Required.Error("description is required"),
			validation.Length(1, 1024),
		),
		validation.Field(&m.Version,
			validation.Match(versionRe).Error("must be dotted numerics"),
		),
	)
}

// Validate validates the parsed skill and surfaces the first failing
// field as a *ValidationError.
func (s *Skill) Validate() error {
	err := s.Metadata.Validate()
	if err == nil {
		return nil
	}

	if errs, ok := err.(validation.Errors); ok {
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		f := fields[0]
		return &ValidationError{Field: f, Message: errs[f].Error()}
	}

	return err
}
