package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd2q/internal/prompts"
)

var testSchema = prompts.ResponseSchema{
	Required:         []string{"role_level", "extracted_skills", "sections"},
	QuestionRequired: []string{"id", "type", "difficulty", "text", "expected_signals"},
}

func parseResponse(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

const validResponse = `{
	"role_level": "Senior",
	"extracted_skills": ["Go", "PostgreSQL"],
	"sections": [
		{
			"title": "Go Fundamentals",
			"skill": "Go",
			"questions": [
				{"id": "q1", "type": "Conceptual", "difficulty": "Mid", "text": "What is a goroutine?", "expected_signals": ["scheduling"]},
				{"id": "q2", "type": "Coding", "difficulty": "Senior", "text": "Implement a worker pool.", "expected_signals": ["channels"]},
				{"id": "q3", "type": "Design", "difficulty": "Senior", "text": "Design a cache.", "expected_signals": ["eviction"]}
			]
		},
		{
			"title": "Databases",
			"skill": "PostgreSQL",
			"questions": [
				{"id": "q4", "type": "Conceptual", "difficulty": "Mid", "text": "Explain MVCC.", "expected_signals": ["snapshots"]},
				{"id": "q5", "type": "Debugging", "difficulty": "Senior", "text": "Diagnose a slow query.", "expected_signals": ["EXPLAIN"]}
			]
		}
	]
}`

func TestValidate_AcceptsWellFormedResponse(t *testing.T) {
	outcome, err := Validate(parseResponse(t, validResponse), testSchema, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, outcome.TotalQuestions)
	assert.False(t, outcome.Shortfall)
}

func TestValidate_ShortfallIsNotAnError(t *testing.T) {
	outcome, err := Validate(parseResponse(t, validResponse), testSchema, 15)
	require.NoError(t, err)
	assert.Equal(t, 5, outcome.TotalQuestions)
	assert.True(t, outcome.Shortfall)
}

func TestValidate_MissingFieldsReportedInSchemaOrder(t *testing.T) {
	response := parseResponse(t, validResponse)
	delete(response, "role_level")
	delete(response, "sections")

	_, err := Validate(response, testSchema, 5)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "missing required field: role_level", schemaErr.Message)
}

func TestValidate_StructuralFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]any)
		message string
	}{
		{
			name:    "sections empty",
			mutate:  func(m map[string]any) { m["sections"] = []any{} },
			message: "response must contain at least one section",
		},
		{
			name:    "sections not a list",
			mutate:  func(m map[string]any) { m["sections"] = "nope" },
			message: "response must contain at least one section",
		},
		{
			name: "section missing questions",
			mutate: func(m map[string]any) {
				m["sections"] = []any{map[string]any{"title": "Broken", "skill": "Go"}}
			},
			message: `section "Broken" missing questions`,
		},
		{
			name: "questions not a list",
			mutate: func(m map[string]any) {
				m["sections"] = []any{map[string]any{"title": "Broken", "questions": "nope"}}
			},
			message: `questions must be a list in section "Broken"`,
		},
		{
			name: "question missing required field",
			mutate: func(m map[string]any) {
				m["sections"] = []any{map[string]any{
					"title": "Go",
					"questions": []any{map[string]any{
						"id": "q1", "type": "Conceptual", "difficulty": "Mid", "text": "x",
					}},
				}}
			},
			message: "question missing required field: expected_signals",
		},
		{
			name: "zero questions across sections",
			mutate: func(m map[string]any) {
				m["sections"] = []any{
					map[string]any{"title": "A", "questions": []any{}},
					map[string]any{"title": "B", "questions": []any{}},
				}
			},
			message: "no questions generated",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := parseResponse(t, validResponse)
			tt.mutate(response)

			_, err := Validate(response, testSchema, 5)
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.message, schemaErr.Message)
		})
	}
}

func TestFlatten_PreservesOrderAndDenormalizesSections(t *testing.T) {
	var result StructuredResult
	require.NoError(t, json.Unmarshal([]byte(validResponse), &result))

	records := Flatten(&result)
	require.Len(t, records, 5)

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5"}, ids)

	assert.Equal(t, "Go Fundamentals", records[0].SectionTitle)
	assert.Equal(t, "Go", records[2].Skill)
	assert.Equal(t, "Databases", records[3].SectionTitle)
	assert.Equal(t, "PostgreSQL", records[4].Skill)
}

func TestFlatten_SkipsEmptySections(t *testing.T) {
	result := &StructuredResult{
		Sections: []Section{
			{Title: "Empty", Skill: "None"},
			{Title: "Full", Skill: "Go", Questions: []Question{{ID: "q1", Text: "x"}}},
		},
	}
	records := Flatten(result)
	require.Len(t, records, 1)
	assert.Equal(t, "Full", records[0].SectionTitle)
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"short key", "tiny", "SHORT"},
		{"boundary length", "0123456789", "SHORT"},
		{"typical key", "AIzaSyB1234567890abcdefgh", "AIzaS...efgh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fingerprint(tt.key))
		})
	}
}
