package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitop-dev/ai-sdk-go/internal/schema"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

const jsonOnlyInstruction = "Return ONLY valid JSON matching the provided schema. Do not include backticks, markdown, or any extra text."

type GenerateObjectRequest[T any] struct {
	BaseRequest

	// Schema is sent to the model as a JSON response format and checked
	// against the returned text before it is decoded into T.
	Schema            Schema
	SchemaName        string
	SchemaDescription string

	// MaxRepairs is how many times an invalid answer is returned to the model
	// together with the validation error. nil means 1.
	MaxRepairs *int
}

type GenerateObjectResult[T any] struct {
	Object  T
	RawJSON json.RawMessage

	FinishReason FinishReason
	// Usage sums every attempt.
	Usage Usage

	// Attempts holds the text generation of every attempt, the last one
	// producing Object.
	Attempts []*GenerateResult
	Response ResponseMetadata
}

// GenerateObject asks the model for a JSON value matching req.Schema and
// decodes it into T. Tools may run before the final answer when StopWhen
// allows more than one step.
func GenerateObject[T any](ctx context.Context, req GenerateObjectRequest[T]) (*GenerateObjectResult[T], error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	if len(req.Schema.JSON) == 0 {
		return nil, &InvalidArgumentError{Parameter: "schema", Reason: "schema is required"}
	}
	repairs := 1
	if req.MaxRepairs != nil {
		repairs = *req.MaxRepairs
	}
	if repairs < 0 {
		return nil, &InvalidArgumentError{Parameter: "maxRepairs", Value: repairs, Reason: "must be >= 0"}
	}
	std, err := ValidateAndStandardize(req.Prompt)
	if err != nil {
		return nil, err
	}

	base := req.BaseRequest
	base.Timeout = 0
	base.responseFormat = &provider.ResponseFormat{
		Type:        "json",
		Schema:      req.Schema.JSON,
		Name:        req.SchemaName,
		Description: req.SchemaDescription,
	}
	msgs := withJSONInstruction(std.Messages)

	out := &GenerateObjectResult[T]{}
	var lastErr error
	for attempt := 0; attempt <= repairs; attempt++ {
		base.Prompt = Prompt{Messages: msgs}
		res, err := generateText(ctx, base, []StopCondition{StepCountIs(1)})
		if err != nil {
			return nil, err
		}
		out.Attempts = append(out.Attempts, res)
		out.Usage = out.Usage.Add(res.TotalUsage)
		out.FinishReason = res.FinishReason
		out.Response = res.Response

		raw := json.RawMessage(stripCodeFence(res.Text))
		obj, err := decodeObject[T](req.Schema, raw)
		if err == nil {
			out.Object = obj
			out.RawJSON = raw
			return out, nil
		}
		lastErr = err

		msgs = append(msgs, res.Response.Messages...)
		msgs = append(msgs, UserText(correctionPrompt(err, raw)))
	}

	last := out.Attempts[len(out.Attempts)-1]
	return nil, &NoObjectGeneratedError{
		Text:         last.Text,
		FinishReason: out.FinishReason,
		Usage:        out.Usage,
		Attempts:     len(out.Attempts),
		Cause:        lastErr,
	}
}

func decodeObject[T any](s Schema, raw json.RawMessage) (T, error) {
	var obj T
	if err := schema.ValidateJSON(s.JSON, raw); err != nil {
		return obj, err
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return obj, fmt.Errorf("decode object: %w", err)
	}
	return obj, nil
}

// withJSONInstruction adds the JSON-only instruction to the leading system
// message, creating one when the conversation has none.
func withJSONInstruction(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs)+1)
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		sys := msgs[0]
		sys.Content = append(append([]Part(nil), sys.Content...), TextPart{Text: "\n\n" + jsonOnlyInstruction})
		out = append(out, sys)
		return append(out, msgs[1:]...)
	}
	out = append(out, SystemMessage(jsonOnlyInstruction))
	return append(out, msgs...)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func correctionPrompt(err error, raw json.RawMessage) string {
	const max = 4000
	s := string(raw)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return fmt.Sprintf("The previous JSON was invalid or did not match the schema.\nError:\n%s\nPrevious JSON:\n%s\nReturn ONLY corrected JSON (no extra text).", err.Error(), s)
}
