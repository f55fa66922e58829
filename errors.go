package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bitop-dev/ai-sdk-go/internal/retry"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

// ErrAborted is returned (joined with the context cause) when a call is
// cancelled before it completes.
var ErrAborted = retry.ErrAborted

func IsAborted(err error) bool { return errors.Is(err, ErrAborted) }

type InvalidArgumentError struct {
	Parameter string
	Value     any
	Reason    string
}

func (e *InvalidArgumentError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid argument for parameter %s: %s (value: %v)", e.Parameter, e.Reason, e.Value)
}

func IsInvalidArgument(err error) bool {
	var e *InvalidArgumentError
	return errors.As(err, &e)
}

type InvalidPromptError struct {
	Message string
	Cause   error
}

func (e *InvalidPromptError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return "invalid prompt: " + e.Message + ": " + e.Cause.Error()
	}
	return "invalid prompt: " + e.Message
}

func (e *InvalidPromptError) Unwrap() error { return e.Cause }

func IsInvalidPrompt(err error) bool {
	var e *InvalidPromptError
	return errors.As(err, &e)
}

// SchemaIssue is one JSON Schema violation of a tool input.
type SchemaIssue struct {
	Path    string
	Keyword string
	Message string
}

type InvalidToolInputError struct {
	ToolName   string
	ToolCallID string
	Input      string
	Issues     []SchemaIssue
	Cause      error
}

func (e *InvalidToolInputError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Issues) > 0 {
		parts := make([]string, len(e.Issues))
		for i, is := range e.Issues {
			path := is.Path
			if path == "" {
				path = "/"
			}
			parts[i] = fmt.Sprintf("%s: %s (%s)", path, is.Message, is.Keyword)
		}
		return "invalid input for tool " + e.ToolName + ": " + strings.Join(parts, "; ")
	}
	if e.Cause != nil {
		return "invalid input for tool " + e.ToolName + ": " + e.Cause.Error()
	}
	return "invalid input for tool " + e.ToolName
}

func (e *InvalidToolInputError) Unwrap() error { return e.Cause }

func IsInvalidToolInput(err error) bool {
	var e *InvalidToolInputError
	return errors.As(err, &e)
}

type NoSuchToolError struct {
	ToolName       string
	AvailableTools []string
}

func (e *NoSuchToolError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.AvailableTools) == 0 {
		return "no such tool: " + e.ToolName + " (no tools are available)"
	}
	return "no such tool: " + e.ToolName + " (available tools: " + strings.Join(e.AvailableTools, ", ") + ")"
}

func IsNoSuchTool(err error) bool {
	var e *NoSuchToolError
	return errors.As(err, &e)
}

type NoSuchModelError = provider.NoSuchModelError

func IsNoSuchModel(err error) bool {
	var e *NoSuchModelError
	return errors.As(err, &e)
}

// ModelError reports a failed model call.
type ModelError struct {
	Provider  string
	Code      string
	Status    int
	Message   string
	Retryable bool
	Cause     error
}

func (e *ModelError) Error() string {
	if e == nil {
		return ""
	}
	if e.Provider != "" && e.Message != "" {
		return e.Provider + ": " + e.Message
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Provider != "" {
		return e.Provider + ": error"
	}
	return "model error"
}

func (e *ModelError) Unwrap() error { return e.Cause }

func IsModelError(err error) bool {
	var e *ModelError
	return errors.As(err, &e)
}

func IsRateLimited(err error) bool {
	var e *ModelError
	return errors.As(err, &e) && (e.Status == 429 || e.Code == "rate_limited")
}

func IsAuth(err error) bool {
	var e *ModelError
	return errors.As(err, &e) && (e.Status == 401 || e.Status == 403 || e.Code == "unauthorized")
}

func IsTimeout(err error) bool {
	var e *ModelError
	if errors.As(err, &e) && e.Code == "timeout" {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func IsCanceled(err error) bool {
	var e *ModelError
	if errors.As(err, &e) && e.Code == "canceled" {
		return true
	}
	return errors.Is(err, context.Canceled)
}

type ToolExecutionError struct {
	ToolName   string
	ToolCallID string
	Input      any
	Cause      error
}

func (e *ToolExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return "tool execution failed for " + e.ToolName + ": " + e.Cause.Error()
	}
	return "tool execution failed for " + e.ToolName
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

func IsToolExecution(err error) bool {
	var e *ToolExecutionError
	return errors.As(err, &e)
}

// ToolApprovalRequiredError is returned by ApproveToolCall implementations
// (and recorded in tool errors) when a call needs a decision nobody made.
type ToolApprovalRequiredError struct {
	ToolName   string
	ToolCallID string
	ApprovalID string
}

func (e *ToolApprovalRequiredError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("tool %s (call %s) requires approval", e.ToolName, e.ToolCallID)
}

func IsToolApprovalRequired(err error) bool {
	var e *ToolApprovalRequiredError
	return errors.As(err, &e)
}

type RetryReason = retry.Reason

const (
	RetryMaxRetriesExceeded = retry.MaxRetriesExceeded
	RetryErrorNotRetryable  = retry.NotRetryable
)

// RetryError is returned when a call failed after at least one retry.
type RetryError struct {
	Reason   RetryReason
	Attempts int
	Errors   []error
}

func (e *RetryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason == RetryMaxRetriesExceeded {
		return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last())
	}
	return fmt.Sprintf("failed after %d attempts with non-retryable error: %v", e.Attempts, e.Last())
}

func (e *RetryError) Last() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

func (e *RetryError) Unwrap() error { return e.Last() }

func IsRetry(err error) bool {
	var e *RetryError
	return errors.As(err, &e)
}

type StorageErrorKind string

const (
	StorageNotFound      StorageErrorKind = "not_found"
	StorageInvalidInput  StorageErrorKind = "invalid_input"
	StorageSerialization StorageErrorKind = "serialization"
	StorageIO            StorageErrorKind = "io"
	StorageDatabase      StorageErrorKind = "database"
	StorageProvider      StorageErrorKind = "provider"
	StorageUnknown       StorageErrorKind = "unknown"
)

type StorageError struct {
	Kind  StorageErrorKind
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	msg := "storage " + string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error { return e.Cause }

// Transient reports whether retrying the operation may succeed.
func (e *StorageError) Transient() bool {
	return e != nil && (e.Kind == StorageIO || e.Kind == StorageDatabase)
}

func IsStorage(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}

func IsStorageNotFound(err error) bool {
	var e *StorageError
	return errors.As(err, &e) && e.Kind == StorageNotFound
}

type NoImageGeneratedError struct {
	Provider  string
	Responses []provider.ResponseMetadata
	Cause     error
}

func (e *NoImageGeneratedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: no image generated: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s: no image generated", e.Provider)
}

func (e *NoImageGeneratedError) Unwrap() error { return e.Cause }

func IsNoImageGenerated(err error) bool {
	var e *NoImageGeneratedError
	return errors.As(err, &e)
}

type NoSpeechGeneratedError struct {
	Provider string
	Response provider.ResponseMetadata
}

func (e *NoSpeechGeneratedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: no speech generated", e.Provider)
}

func IsNoSpeechGenerated(err error) bool {
	var e *NoSpeechGeneratedError
	return errors.As(err, &e)
}

type NoTranscriptGeneratedError struct {
	Provider string
	Response provider.ResponseMetadata
}

func (e *NoTranscriptGeneratedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: no transcript generated", e.Provider)
}

func IsNoTranscriptGenerated(err error) bool {
	var e *NoTranscriptGeneratedError
	return errors.As(err, &e)
}

// NoObjectGeneratedError reports that no attempt produced JSON matching the
// requested schema. Cause is the last validation error.
type NoObjectGeneratedError struct {
	Text         string
	FinishReason FinishReason
	Usage        Usage
	Attempts     int
	Cause        error
}

func (e *NoObjectGeneratedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("no object generated after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *NoObjectGeneratedError) Unwrap() error { return e.Cause }

func IsNoObjectGenerated(err error) bool {
	var e *NoObjectGeneratedError
	return errors.As(err, &e)
}

// mapModelError normalizes errors returned by model calls.
func mapModelError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAborted) {
		return err
	}
	var re *retry.Error
	if errors.As(err, &re) {
		errs := make([]error, len(re.Errors))
		for i, e := range re.Errors {
			errs[i] = mapModelError(e)
		}
		return &RetryError{Reason: re.Reason, Attempts: len(re.Errors), Errors: errs}
	}
	var me *ModelError
	if errors.As(err, &me) {
		return err
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		return &ModelError{
			Provider:  pe.Provider,
			Code:      pe.Code,
			Status:    pe.Status,
			Message:   pe.Message,
			Retryable: pe.Retryable,
			Cause:     err,
		}
	}
	return &ModelError{Message: err.Error(), Cause: err}
}

func checkSpecificationVersion(m provider.Model) error {
	if m == nil {
		return &InvalidArgumentError{Parameter: "model", Reason: "model is required"}
	}
	if v := m.SpecificationVersion(); v != provider.SpecificationVersion {
		return &ModelError{
			Provider: m.Provider(),
			Code:     "unsupported_specification",
			Message:  fmt.Sprintf("model %s uses unsupported specification version %q", m.ModelID(), v),
		}
	}
	return nil
}
