package conf

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists the schema violations of a config document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Errors, "; "))
}

// Validate validates a decoded config document against schema.
func Validate(schema *gojsonschema.Schema, data map[string]any) error {
	res, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if res.Valid() {
		return nil
	}

	errs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, e.String())
	}

	return &ValidationError{Errors: errs}
}
