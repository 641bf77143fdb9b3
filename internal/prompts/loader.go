// Package prompts provides versioned LLM prompt templates embedded at compile
// time. A template bundles the system instruction, the user prompt skeleton,
// and the response schema the validator enforces on the model output.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/singleflight"
)

//go:embed templates/*.json template_schema.json
var templateFiles embed.FS

// ResponseSchema describes the shape the validator enforces on model output.
// Field order in Required determines which missing field is reported first.
type ResponseSchema struct {
	Required         []string `json:"required"`
	QuestionRequired []string `json:"question_required"`
}

// Template is an immutable prompt definition loaded by exact name.
type Template struct {
	Version           string         `json:"version"`
	SystemInstruction string         `json:"system_instruction"`
	UserTemplate      string         `json:"user_template"`
	ResponseSchema    ResponseSchema `json:"response_schema"`
}

// NotFoundError indicates no template resource exists for the requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("prompt template %q not found", e.Name)
}

// ParseError indicates a template resource exists but is malformed. This is a
// deployment defect; callers must not retry with a different name.
type ParseError struct {
	Name  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("prompt template %q is malformed: %v", e.Name, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Store loads and memoizes prompt templates. Construct one at startup and
// hand it to the orchestrators; there is no package-level singleton.
type Store struct {
	mu    sync.RWMutex
	cache map[string]*Template
	group singleflight.Group
	meta  *gojsonschema.Schema
}

// NewStore creates a Store. The embedded meta-schema is compiled eagerly so a
// broken deployment fails at startup rather than on first use.
func NewStore() (*Store, error) {
	raw, err := templateFiles.ReadFile("template_schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read template meta-schema: %w", err)
	}

	meta, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile template meta-schema: %w", err)
	}

	return &Store{
		cache: make(map[string]*Template),
		meta:  meta,
	}, nil
}

// Load returns the template for the given name, reading and parsing the
// embedded resource at most once per name. Concurrent first-time loads of the
// same name are collapsed into a single parse.
func (s *Store) Load(name string) (*Template, error) {
	s.mu.RLock()
	if tpl, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return tpl, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do(name, func() (any, error) {
		tpl, err := s.loadFile(name)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[name] = tpl
		s.mu.Unlock()
		return tpl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Template), nil
}

func (s *Store) loadFile(name string) (*Template, error) {
	data, err := templateFiles.ReadFile("templates/" + name + ".json")
	if err != nil {
		return nil, &NotFoundError{Name: name}
	}

	result, err := s.meta.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &ParseError{Name: name, Cause: err}
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, &ParseError{Name: name, Cause: fmt.Errorf("%s", strings.Join(msgs, "; "))}
	}

	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, &ParseError{Name: name, Cause: err}
	}
	return &tpl, nil
}

// Substitute replaces {{placeholder}} tokens with values by literal substring
// replacement. Placeholders without a value are left untouched; values are
// not escaped.
func Substitute(template string, values map[string]string) string {
	result := template
	for key, value := range values {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}
