// Package generation implements the question and answer orchestrators: prompt
// composition, the outbound model call, response validation, and flattening
// of the structured result into storage-ready records.
package generation

// Question is a single generated interview question. The id is assigned by
// the model and is unique within one generation only.
type Question struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Difficulty      string   `json:"difficulty"`
	Text            string   `json:"text"`
	ExpectedSignals []string `json:"expected_signals"`
}

// Section groups questions probing one skill area.
type Section struct {
	Title     string     `json:"title"`
	Skill     string     `json:"skill"`
	Questions []Question `json:"questions"`
}

// StructuredResult is the validated top-level model response.
type StructuredResult struct {
	RoleLevel       string    `json:"role_level"`
	ExtractedSkills []string  `json:"extracted_skills"`
	Sections        []Section `json:"sections"`
}

// QuestionRecord is a flattened question carrying denormalized section
// context, ready for persistence.
type QuestionRecord struct {
	ID              string   `json:"id"`
	SectionTitle    string   `json:"section_title"`
	Skill           string   `json:"skill"`
	Type            string   `json:"type"`
	Difficulty      string   `json:"difficulty"`
	Text            string   `json:"text"`
	ExpectedSignals []string `json:"expected_signals"`
}

// Flatten converts the nested section structure into one ordered sequence of
// records: section order first, question order within each section. Sections
// with no questions contribute nothing. Downstream grouping relies on the
// section fields of each record, not on the sequence order itself, but the
// order is deterministic regardless.
func Flatten(result *StructuredResult) []QuestionRecord {
	var records []QuestionRecord
	for _, section := range result.Sections {
		for _, q := range section.Questions {
			records = append(records, QuestionRecord{
				ID:              q.ID,
				SectionTitle:    section.Title,
				Skill:           section.Skill,
				Type:            q.Type,
				Difficulty:      q.Difficulty,
				Text:            q.Text,
				ExpectedSignals: q.ExpectedSignals,
			})
		}
	}
	return records
}
