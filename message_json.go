package ai

import (
	"encoding/json"
	"fmt"
)

type messageJSON struct {
	Role            Role              `json:"role"`
	Content         []json.RawMessage `json:"content"`
	ProviderOptions ProviderOptions   `json:"providerOptions,omitempty"`
}

type dataJSON struct {
	Bytes  []byte `json:"bytes,omitempty"`
	Base64 string `json:"base64,omitempty"`
	URL    string `json:"url,omitempty"`
}

type partJSON struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Data      *dataJSON `json:"data,omitempty"`
	MediaType string    `json:"mediaType,omitempty"`
	Filename  string    `json:"filename,omitempty"`

	ToolCallID       string          `json:"toolCallId,omitempty"`
	ToolName         string          `json:"toolName,omitempty"`
	Input            json.RawMessage `json:"input,omitempty"`
	ProviderExecuted bool            `json:"providerExecuted,omitempty"`
	Output           *outputJSON     `json:"output,omitempty"`

	ApprovalID string `json:"approvalId,omitempty"`
	Approved   bool   `json:"approved,omitempty"`
	Reason     string `json:"reason,omitempty"`

	ProviderOptions ProviderOptions `json:"providerOptions,omitempty"`
}

type outputJSON struct {
	Type   string          `json:"type"`
	Value  json.RawMessage `json:"value,omitempty"`
	Items  []itemJSON      `json:"items,omitempty"`
	Reason string          `json:"reason,omitempty"`

	ProviderOptions ProviderOptions `json:"providerOptions,omitempty"`
}

type itemJSON struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Data      string `json:"data,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	FileID    string `json:"fileId,omitempty"`
	URL       string `json:"url,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{Role: m.Role, ProviderOptions: m.ProviderOptions}
	out.Content = make([]json.RawMessage, 0, len(m.Content))
	for _, p := range m.Content {
		pj, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(pj)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, raw)
	}
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var in messageJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	m.Role = in.Role
	m.ProviderOptions = in.ProviderOptions
	m.Content = make([]Part, 0, len(in.Content))
	for _, raw := range in.Content {
		var pj partJSON
		if err := json.Unmarshal(raw, &pj); err != nil {
			return err
		}
		p, err := decodePart(pj)
		if err != nil {
			return err
		}
		m.Content = append(m.Content, p)
	}
	return nil
}

func encodeData(d DataContent) *dataJSON {
	return &dataJSON{Bytes: d.Bytes, Base64: d.Base64, URL: d.URL}
}

func decodeData(d *dataJSON) DataContent {
	if d == nil {
		return DataContent{}
	}
	return DataContent{Bytes: d.Bytes, Base64: d.Base64, URL: d.URL}
}

func encodePart(p Part) (partJSON, error) {
	switch p := p.(type) {
	case TextPart:
		return partJSON{Type: "text", Text: p.Text, ProviderOptions: p.ProviderOptions}, nil
	case ImagePart:
		return partJSON{Type: "image", Data: encodeData(p.Image), MediaType: p.MediaType, ProviderOptions: p.ProviderOptions}, nil
	case FilePart:
		return partJSON{Type: "file", Data: encodeData(p.Data), MediaType: p.MediaType, Filename: p.Filename, ProviderOptions: p.ProviderOptions}, nil
	case ReasoningPart:
		return partJSON{Type: "reasoning", Text: p.Text, ProviderOptions: p.ProviderOptions}, nil
	case ToolCallPart:
		input, err := json.Marshal(p.Input)
		if err != nil {
			return partJSON{}, fmt.Errorf("tool call %s input: %w", p.ToolCallID, err)
		}
		return partJSON{
			Type:             "tool-call",
			ToolCallID:       p.ToolCallID,
			ToolName:         p.ToolName,
			Input:            input,
			ProviderExecuted: p.ProviderExecuted,
			ProviderOptions:  p.ProviderOptions,
		}, nil
	case ToolResultPart:
		out, err := encodeOutput(p.Output)
		if err != nil {
			return partJSON{}, fmt.Errorf("tool result %s: %w", p.ToolCallID, err)
		}
		return partJSON{
			Type:            "tool-result",
			ToolCallID:      p.ToolCallID,
			ToolName:        p.ToolName,
			Output:          out,
			ProviderOptions: p.ProviderOptions,
		}, nil
	case ToolApprovalRequestPart:
		return partJSON{Type: "tool-approval-request", ApprovalID: p.ApprovalID, ToolCallID: p.ToolCallID}, nil
	case ToolApprovalResponsePart:
		return partJSON{
			Type:            "tool-approval-response",
			ApprovalID:      p.ApprovalID,
			Approved:        p.Approved,
			Reason:          p.Reason,
			ProviderOptions: p.ProviderOptions,
		}, nil
	default:
		return partJSON{}, fmt.Errorf("unsupported message part %T", p)
	}
}

func decodePart(pj partJSON) (Part, error) {
	switch pj.Type {
	case "text":
		return TextPart{Text: pj.Text, ProviderOptions: pj.ProviderOptions}, nil
	case "image":
		return ImagePart{Image: decodeData(pj.Data), MediaType: pj.MediaType, ProviderOptions: pj.ProviderOptions}, nil
	case "file":
		return FilePart{Data: decodeData(pj.Data), MediaType: pj.MediaType, Filename: pj.Filename, ProviderOptions: pj.ProviderOptions}, nil
	case "reasoning":
		return ReasoningPart{Text: pj.Text, ProviderOptions: pj.ProviderOptions}, nil
	case "tool-call":
		var input any
		if len(pj.Input) > 0 {
			if err := json.Unmarshal(pj.Input, &input); err != nil {
				return nil, fmt.Errorf("tool call %s input: %w", pj.ToolCallID, err)
			}
		}
		return ToolCallPart{
			ToolCallID:       pj.ToolCallID,
			ToolName:         pj.ToolName,
			Input:            input,
			ProviderExecuted: pj.ProviderExecuted,
			ProviderOptions:  pj.ProviderOptions,
		}, nil
	case "tool-result":
		out, err := decodeOutput(pj.Output)
		if err != nil {
			return nil, fmt.Errorf("tool result %s: %w", pj.ToolCallID, err)
		}
		return ToolResultPart{ToolCallID: pj.ToolCallID, ToolName: pj.ToolName, Output: out, ProviderOptions: pj.ProviderOptions}, nil
	case "tool-approval-request":
		return ToolApprovalRequestPart{ApprovalID: pj.ApprovalID, ToolCallID: pj.ToolCallID}, nil
	case "tool-approval-response":
		return ToolApprovalResponsePart{ApprovalID: pj.ApprovalID, Approved: pj.Approved, Reason: pj.Reason, ProviderOptions: pj.ProviderOptions}, nil
	default:
		return nil, fmt.Errorf("unknown message part type %q", pj.Type)
	}
}

func encodeOutput(o ToolResultOutput) (*outputJSON, error) {
	value := func(v any) (json.RawMessage, error) { return json.Marshal(v) }
	switch o := o.(type) {
	case OutputText:
		v, err := value(o.Value)
		return &outputJSON{Type: "text", Value: v, ProviderOptions: o.ProviderOptions}, err
	case OutputJSON:
		v, err := value(o.Value)
		return &outputJSON{Type: "json", Value: v, ProviderOptions: o.ProviderOptions}, err
	case OutputErrorText:
		v, err := value(o.Value)
		return &outputJSON{Type: "error-text", Value: v, ProviderOptions: o.ProviderOptions}, err
	case OutputErrorJSON:
		v, err := value(o.Value)
		return &outputJSON{Type: "error-json", Value: v, ProviderOptions: o.ProviderOptions}, err
	case OutputExecutionDenied:
		return &outputJSON{Type: "execution-denied", Reason: o.Reason, ProviderOptions: o.ProviderOptions}, nil
	case OutputContent:
		items := make([]itemJSON, 0, len(o.Items))
		for _, it := range o.Items {
			switch it := it.(type) {
			case ContentText:
				items = append(items, itemJSON{Type: "text", Text: it.Text})
			case ContentMedia:
				items = append(items, itemJSON{Type: "media", Data: it.Data, MediaType: it.MediaType})
			case ContentFileID:
				items = append(items, itemJSON{Type: "file-id", FileID: it.FileID})
			case ContentURL:
				items = append(items, itemJSON{Type: "url", URL: it.URL})
			default:
				return nil, fmt.Errorf("unsupported content item %T", it)
			}
		}
		return &outputJSON{Type: "content", Items: items}, nil
	case nil:
		return nil, fmt.Errorf("missing output")
	default:
		return nil, fmt.Errorf("unsupported tool output %T", o)
	}
}

func decodeOutput(o *outputJSON) (ToolResultOutput, error) {
	if o == nil {
		return nil, fmt.Errorf("missing output")
	}
	var v any
	if len(o.Value) > 0 {
		if err := json.Unmarshal(o.Value, &v); err != nil {
			return nil, err
		}
	}
	str, _ := v.(string)
	switch o.Type {
	case "text":
		return OutputText{Value: str, ProviderOptions: o.ProviderOptions}, nil
	case "json":
		return OutputJSON{Value: v, ProviderOptions: o.ProviderOptions}, nil
	case "error-text":
		return OutputErrorText{Value: str, ProviderOptions: o.ProviderOptions}, nil
	case "error-json":
		return OutputErrorJSON{Value: v, ProviderOptions: o.ProviderOptions}, nil
	case "execution-denied":
		return OutputExecutionDenied{Reason: o.Reason, ProviderOptions: o.ProviderOptions}, nil
	case "content":
		items := make([]OutputContentItem, 0, len(o.Items))
		for _, it := range o.Items {
			switch it.Type {
			case "text":
				items = append(items, ContentText{Text: it.Text})
			case "media":
				items = append(items, ContentMedia{Data: it.Data, MediaType: it.MediaType})
			case "file-id":
				items = append(items, ContentFileID{FileID: it.FileID})
			case "url":
				items = append(items, ContentURL{URL: it.URL})
			default:
				return nil, fmt.Errorf("unknown content item type %q", it.Type)
			}
		}
		return OutputContent{Items: items}, nil
	default:
		return nil, fmt.Errorf("unknown tool output type %q", o.Type)
	}
}
