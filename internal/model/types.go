// Package model holds the data model shared across Kalla's components: the
// Recipe description of a reconciliation, the wire-level JobRequest C4
// consumes, and the evidence row C4 produces.
package model

import "time"

// SourceType enumerates where a RecipeSource's rows live.
type SourceType string

// Recipe source kinds.
const (
	SourceRelational  SourceType = "relational"
	SourceObjectStore SourceType = "object-store"
	SourceLocalFile   SourceType = "local-file"
)

// RecipeSource describes one side of a reconciliation.
type RecipeSource struct {
	Alias      string     `json:"alias"`
	SourceType SourceType `json:"source_type"`
	URI        *string    `json:"uri,omitempty"`
	Schema     []string   `json:"schema,omitempty"`
	PrimaryKey []string   `json:"primary_key"`
}

// RecipeSources holds the two sides of a reconciliation, per §3's
// "sources.left"/"sources.right" naming.
type RecipeSources struct {
	Left  RecipeSource `json:"left"`
	Right RecipeSource `json:"right"`
}

// Recipe is the immutable, validated description of a reconciliation job.
type Recipe struct {
	RecipeID    string        `json:"recipe_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	MatchSQL    string        `json:"match_sql"`
	Sources     RecipeSources `json:"sources"`
}

// SchemaColumn is one column of a SanitizedSchema: no cell values, ever.
type SchemaColumn struct {
	Name         string `json:"column_name"`
	SemanticType string `json:"semantic_type"`
	Nullable     bool   `json:"nullable"`
}

// SanitizedSchema is the LLM prompt input for the recipe generator
// front-end: structure only, never row values.
type SanitizedSchema struct {
	TableName string         `json:"table_name"`
	Columns   []SchemaColumn `json:"columns"`
	RowCount  int64          `json:"row_count"`
}

// FilterOp enumerates the operators a FilterCondition may render.
type FilterOp string

// Supported filter operators.
const (
	FilterEq      FilterOp = "eq"
	FilterNeq     FilterOp = "neq"
	FilterGt      FilterOp = "gt"
	FilterGte     FilterOp = "gte"
	FilterLt      FilterOp = "lt"
	FilterLte     FilterOp = "lte"
	FilterBetween FilterOp = "between"
	FilterIn      FilterOp = "in"
	FilterLike    FilterOp = "like"
)

// FilterCondition is a single predicate on a source, rendered deterministically
// to a SQL WHERE fragment by the source registry (C3).
type FilterCondition struct {
	Column string   `json:"column"`
	Op     FilterOp `json:"op"`
	// Value holds a scalar for most ops, a two-element slice for `between`,
	// and a []string for `in`.
	Value any `json:"value"`
}

// JobSource is one entry of a JobRequest's ordered source list.
type JobSource struct {
	Alias   string            `json:"alias"`
	URI     string            `json:"uri"`
	Filters []FilterCondition `json:"filters,omitempty"`
}

// JobRequest is the wire-level request body accepted by C4's
// POST /api/jobs. Sources[0] is authoritative as "left", Sources[1] as
// "right" for downstream unmatched accounting.
type JobRequest struct {
	RunID       string              `json:"run_id"`
	CallbackURL string              `json:"callback_url"`
	MatchSQL    string              `json:"match_sql"`
	Sources     []JobSource         `json:"sources"`
	OutputPath  string              `json:"output_path"`
	PrimaryKeys map[string][]string `json:"primary_keys"`
}

// LeftAlias returns the alias of the authoritative left source, or "" if the
// request carries fewer than one source.
func (r JobRequest) LeftAlias() string {
	if len(r.Sources) < 1 {
		return ""
	}
	return r.Sources[0].Alias
}

// RightAlias returns the alias of the authoritative right source, or "" if
// the request carries fewer than two sources.
func (r JobRequest) RightAlias() string {
	if len(r.Sources) < 2 {
		return ""
	}
	return r.Sources[1].Alias
}

// MatchedRecord is one row of the evidence file: a single matched pair.
type MatchedRecord struct {
	MatchID    string    `json:"match_id"`
	LeftKey    string    `json:"left_key"`
	RightKey   string    `json:"right_key"`
	RuleName   string    `json:"rule_name"`
	Confidence float64   `json:"confidence"`
	MatchedAt  time.Time `json:"matched_at"`
}

// RuleNameMatchSQL is the only rule_name MatchedRecord currently carries;
// the field is reserved for future per-rule attribution (§9).
const RuleNameMatchSQL = "match_sql"
