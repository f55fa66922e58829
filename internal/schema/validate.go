package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const cacheSize = 256

var compiled *lru.Cache[string, *jsonschema.Schema]

func init() {
	c, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		panic(err)
	}
	compiled = c
}

// Issue is a single schema violation.
type Issue struct {
	// Path is the JSON pointer of the offending value ("" is the root).
	Path    string
	Keyword string
	Message string
}

func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "/"
	}
	if i.Keyword == "" {
		return fmt.Sprintf("%s: %s", path, i.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", path, i.Message, i.Keyword)
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Issues []Issue
	Cause  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Compile compiles a draft 7 schema. Results are cached by schema text.
func Compile(schemaJSON json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaJSON)
	if s, ok := compiled.Get(key); ok {
		return s, nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("schema resource: %w", err)
	}
	s, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiled.Add(key, s)
	return s, nil
}

// Validate checks an already decoded JSON value against schemaJSON. An empty
// schema accepts everything.
func Validate(schemaJSON json.RawMessage, doc any) error {
	if len(bytes.TrimSpace(schemaJSON)) == 0 {
		return nil
	}
	s, err := Compile(schemaJSON)
	if err != nil {
		return err
	}
	err = s.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	return &ValidationError{Issues: flatten(ve, nil), Cause: err}
}

// ValidateJSON decodes raw and validates it.
func ValidateJSON(schemaJSON json.RawMessage, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty json")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return Validate(schemaJSON, doc)
}

func flatten(ve *jsonschema.ValidationError, out []Issue) []Issue {
	if len(ve.Causes) == 0 {
		return append(out, Issue{
			Path:    ve.InstanceLocation,
			Keyword: lastSegment(ve.KeywordLocation),
			Message: ve.Message,
		})
	}
	for _, c := range ve.Causes {
		out = flatten(c, out)
	}
	return out
}

func lastSegment(loc string) string {
	if i := strings.LastIndex(loc, "/"); i >= 0 {
		return loc[i+1:]
	}
	return loc
}
