package schema

import (
	"errors"
	"strings"
	"testing"
)

const weatherSchema = `{"type":"object","properties":{"city":{"type":"string"},"days":{"type":"integer"}},"required":["city"]}`

func TestValidate_OK(t *testing.T) {
	if err := ValidateJSON([]byte(weatherSchema), []byte(`{"city":"SF"}`)); err != nil {
		t.Fatal(err)
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	err := ValidateJSON([]byte(weatherSchema), []byte(`{"days":"two"}`))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err=%v", err)
	}
	if len(ve.Issues) != 2 {
		t.Fatalf("issues=%#v", ve.Issues)
	}
	var sawRequired, sawType bool
	for _, is := range ve.Issues {
		switch is.Keyword {
		case "required":
			sawRequired = true
		case "type":
			sawType = true
			if is.Path != "/days" {
				t.Fatalf("path=%q", is.Path)
			}
		}
	}
	if !sawRequired || !sawType {
		t.Fatalf("issues=%#v", ve.Issues)
	}
	if !strings.Contains(err.Error(), "required") {
		t.Fatalf("err=%q", err.Error())
	}
}

func TestValidate_EmptySchemaAcceptsAnything(t *testing.T) {
	if err := Validate(nil, map[string]any{"x": 1}); err != nil {
		t.Fatal(err)
	}
}

func TestCompile_Cached(t *testing.T) {
	a, err := Compile([]byte(weatherSchema))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile([]byte(weatherSchema))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected cached schema")
	}
}

func TestCompile_Invalid(t *testing.T) {
	if _, err := Compile([]byte(`{"type":12}`)); err == nil {
		t.Fatalf("expected compile error")
	}
}
