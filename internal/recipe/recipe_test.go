package recipe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallahq/kalla/internal/model"
	"github.com/kallahq/kalla/internal/recipe"
)

func uri(s string) *string { return &s }

func validRecipe() model.Recipe {
	return model.Recipe{
		RecipeID: "r1",
		Name:     "invoices-vs-payments",
		MatchSQL: "SELECT l.id, r.id FROM l JOIN r ON l.id = r.id",
		Sources: model.RecipeSources{
			Left: model.RecipeSource{
				Alias:      "l",
				SourceType: model.SourceRelational,
				URI:        uri("postgresql://host/db?table=invoices"),
				PrimaryKey: []string{"id"},
			},
			Right: model.RecipeSource{
				Alias:      "r",
				SourceType: model.SourceLocalFile,
				Schema:     []string{"id", "amount"},
				PrimaryKey: []string{"id"},
			},
		},
	}
}

func TestValidate_ValidRecipeHasNoErrors(t *testing.T) {
	require.Empty(t, recipe.Validate(validRecipe()))
}

func TestValidate_AccumulatesAllViolations(t *testing.T) {
	r := model.Recipe{}
	errs := recipe.Validate(r)

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}

	assert.True(t, fields["recipe_id"])
	assert.True(t, fields["name"])
	assert.True(t, fields["match_sql"])
	assert.True(t, fields["sources.left.primary_key"])
	assert.True(t, fields["sources.right.primary_key"])
	// Default zero-value SourceType is neither relational/object-store nor
	// local-file, so neither URI nor schema rules fire for it; this asserts
	// validation did not short-circuit after the first three failures.
	assert.GreaterOrEqual(t, len(errs), 5)
}

func TestValidate_FileSourceRequiresSchema(t *testing.T) {
	r := validRecipe()
	r.Sources.Right.Schema = nil
	errs := recipe.Validate(r)
	require.NotEmpty(t, errs)
	assert.Equal(t, "sources.right.schema", errs[0].Field)
}

func TestValidate_PersistentSourceRequiresURI(t *testing.T) {
	r := validRecipe()
	r.Sources.Left.URI = nil
	errs := recipe.Validate(r)
	require.NotEmpty(t, errs)
	assert.Equal(t, "sources.left.uri", errs[0].Field)
}
