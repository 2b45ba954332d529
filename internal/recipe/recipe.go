// Package recipe validates the declarative description of a reconciliation
// (C5) before it is handed to the job runner.
package recipe

import (
	"fmt"
	"strings"

	"github.com/kallahq/kalla/internal/model"
)

// ValidationError is one accumulated violation. Recipe validation never
// short-circuits: every rule is checked and every violation is reported.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks r against §4.5's rules and returns the accumulated list of
// violations. A nil/empty return means r is valid.
func Validate(r model.Recipe) []ValidationError {
	var errs []ValidationError

	if isBlank(r.RecipeID) {
		errs = append(errs, ValidationError{"recipe_id", "must be non-whitespace"})
	}
	if isBlank(r.Name) {
		errs = append(errs, ValidationError{"name", "must be non-whitespace"})
	}
	if isBlank(r.MatchSQL) {
		errs = append(errs, ValidationError{"match_sql", "must be non-whitespace"})
	}

	errs = append(errs, validateSource("sources.left", r.Sources.Left)...)
	errs = append(errs, validateSource("sources.right", r.Sources.Right)...)

	return errs
}

func validateSource(field string, s model.RecipeSource) []ValidationError {
	var errs []ValidationError

	if len(s.PrimaryKey) == 0 {
		errs = append(errs, ValidationError{field + ".primary_key", "must be nonempty"})
	}

	switch s.SourceType {
	case model.SourceLocalFile:
		if len(s.Schema) == 0 {
			errs = append(errs, ValidationError{field + ".schema", "file sources require a declared schema"})
		}
	case model.SourceRelational, model.SourceObjectStore:
		if s.URI == nil || isBlank(*s.URI) {
			errs = append(errs, ValidationError{field + ".uri", "persistent sources require a non-whitespace uri"})
		}
	}

	return errs
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
