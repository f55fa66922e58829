// Package config loads agent definitions from YAML files.
//
// Values may reference environment variables as ${NAME}. A .env file in
// the working directory is loaded first when present.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	ai "github.com/bitop-dev/ai-sdk-go"
	"github.com/bitop-dev/ai-sdk-go/provider"
	"github.com/bitop-dev/ai-sdk-go/storage/sqlite"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File describes one agent.
type File struct {
	// Model is a registry id, "<provider>:<model>".
	Model        string `yaml:"model"`
	Instructions string `yaml:"instructions"`
	// MaxSteps defaults to 20.
	MaxSteps int `yaml:"max_steps"`
	// Timeout is a Go duration string such as "30s".
	Timeout string `yaml:"timeout"`

	Settings Settings `yaml:"settings"`
	// Tools lists the active tools. Empty means every tool passed to NewAgent.
	Tools []string `yaml:"tools"`

	SessionID string   `yaml:"session_id"`
	Storage   *Storage `yaml:"storage"`
}

type Settings struct {
	MaxOutputTokens  *int              `yaml:"max_output_tokens"`
	Temperature      *float64          `yaml:"temperature"`
	TopP             *float64          `yaml:"top_p"`
	TopK             *int              `yaml:"top_k"`
	PresencePenalty  *float64          `yaml:"presence_penalty"`
	FrequencyPenalty *float64          `yaml:"frequency_penalty"`
	StopSequences    []string          `yaml:"stop_sequences"`
	Seed             *int              `yaml:"seed"`
	MaxRetries       *int              `yaml:"max_retries"`
	Headers          map[string]string `yaml:"headers"`
}

type Storage struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	// OnError is "log" (default), "return" or "retry".
	OnError string `yaml:"on_error"`
	Retry   Retry  `yaml:"retry"`
}

// Retry overrides the defaults of ai.RetryStorageErrors.
type Retry struct {
	MaxRetries   *int    `yaml:"max_retries"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Multiplier   float64 `yaml:"multiplier"`
}

// Load reads the agent file at path after loading .env.
func Load(path string) (*File, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates an agent file. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if f.MaxSteps == 0 {
		f.MaxSteps = 20
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) Validate() error {
	if f.Model == "" {
		return errors.New("model is required")
	}
	if !strings.Contains(f.Model, ":") {
		return fmt.Errorf("model %q must be <provider>:<model>", f.Model)
	}
	if f.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be >= 1, got %d", f.MaxSteps)
	}
	if _, err := parseDuration("timeout", f.Timeout); err != nil {
		return err
	}
	if s := f.Storage; s != nil {
		switch s.Driver {
		case "memory":
		case "sqlite":
			if s.Path == "" {
				return errors.New("storage.path is required for sqlite")
			}
		default:
			return fmt.Errorf("unknown storage driver %q", s.Driver)
		}
		switch s.OnError {
		case "", "log", "return", "retry":
		default:
			return fmt.Errorf("unknown storage.on_error %q", s.OnError)
		}
		if _, err := parseDuration("storage.retry.initial_delay", s.Retry.InitialDelay); err != nil {
			return err
		}
		if _, err := parseDuration("storage.retry.max_delay", s.Retry.MaxDelay); err != nil {
			return err
		}
	}
	return nil
}

// NewAgent builds an agent from f. The model is resolved from reg and the
// active tools from tools. The returned close func releases the storage.
func NewAgent(ctx context.Context, f *File, reg *provider.Registry, tools ai.ToolSet) (*ai.Agent, func() error, error) {
	noop := func() error { return nil }
	if err := f.Validate(); err != nil {
		return nil, noop, err
	}
	model, err := reg.LanguageModel(f.Model)
	if err != nil {
		return nil, noop, err
	}
	for _, name := range f.Tools {
		if _, ok := tools[name]; !ok {
			return nil, noop, &ai.NoSuchToolError{ToolName: name, AvailableTools: tools.Names()}
		}
	}
	timeout, _ := parseDuration("timeout", f.Timeout)

	a := &ai.Agent{
		Model:        model,
		Instructions: f.Instructions,
		CallSettings: ai.CallSettings{
			MaxOutputTokens:  f.Settings.MaxOutputTokens,
			Temperature:      f.Settings.Temperature,
			TopP:             f.Settings.TopP,
			TopK:             f.Settings.TopK,
			PresencePenalty:  f.Settings.PresencePenalty,
			FrequencyPenalty: f.Settings.FrequencyPenalty,
			StopSequences:    f.Settings.StopSequences,
			Seed:             f.Settings.Seed,
			MaxRetries:       f.Settings.MaxRetries,
			Headers:          f.Settings.Headers,
		},
		Tools:       tools,
		ActiveTools: f.Tools,
		StopWhen:    []ai.StopCondition{ai.StepCountIs(f.MaxSteps)},
		Timeout:     timeout,
		SessionID:   f.SessionID,
	}
	if f.Storage == nil {
		return a, noop, nil
	}

	closeFn := noop
	switch f.Storage.Driver {
	case "memory":
		a.Storage = ai.NewMemoryStorage()
	case "sqlite":
		st, err := sqlite.Open(ctx, f.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		a.Storage = st
		closeFn = st.Close
	}
	a.StorageConfig.ErrorBehavior = f.Storage.errorBehavior()
	return a, closeFn, nil
}

func (s *Storage) errorBehavior() ai.StorageErrorBehavior {
	switch s.OnError {
	case "return":
		return ai.StorageErrorBehavior{Mode: ai.StorageReturnError}
	case "retry":
		b := ai.RetryStorageErrors()
		if s.Retry.MaxRetries != nil {
			b.MaxRetries = s.Retry.MaxRetries
		}
		if d, _ := parseDuration("", s.Retry.InitialDelay); d > 0 {
			b.InitialDelay = d
		}
		if d, _ := parseDuration("", s.Retry.MaxDelay); d > 0 {
			b.MaxDelay = d
		}
		if s.Retry.Multiplier >= 1 {
			b.Multiplier = s.Retry.Multiplier
		}
		return b
	default:
		return ai.StorageErrorBehavior{Mode: ai.StorageLogWarning}
	}
}

func parseDuration(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
