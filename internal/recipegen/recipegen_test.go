package recipegen

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallahq/kalla/internal/config"
	"github.com/kallahq/kalla/internal/model"
)

func TestNew_DisabledWithoutAPIKey(t *testing.T) {
	_, ok := New(config.Config{})
	assert.False(t, ok)
}

func TestDraftMatchSQL_ReturnsModelContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"left.id = right.id AND tolerance_match(left.amount, right.amount, 0.01)"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Config{RecipeGenAPIKey: "key", RecipeGenBaseURL: srv.URL, RecipeGenModel: "test-model"}
	client, ok := New(cfg)
	require.True(t, ok)

	left := model.SanitizedSchema{TableName: "orders", Columns: []model.SchemaColumn{{Name: "id", SemanticType: "i64"}}}
	right := model.SanitizedSchema{TableName: "payments", Columns: []model.SchemaColumn{{Name: "id", SemanticType: "i64"}}}

	got, err := client.DraftMatchSQL(t.Context(), left, right)
	require.NoError(t, err)
	assert.Contains(t, got, "tolerance_match")
}

func TestDraftMatchSQL_ClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := config.Config{RecipeGenAPIKey: "key", RecipeGenBaseURL: srv.URL, RecipeGenModel: "test-model"}
	client, ok := New(cfg)
	require.True(t, ok)

	_, err := client.DraftMatchSQL(t.Context(), model.SanitizedSchema{}, model.SanitizedSchema{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
