package provider

import "errors"

// StreamPart is one event of a provider stream.
type StreamPart interface {
	isStreamPart()
}

type StreamStart struct {
	Warnings []Warning
}

func (StreamStart) isStreamPart() {}

type ResponseMetadataPart struct {
	ResponseMetadata
}

func (ResponseMetadataPart) isStreamPart() {}

type TextStart struct {
	ID               string
	ProviderMetadata Metadata
}

func (TextStart) isStreamPart() {}

type TextDelta struct {
	ID    string
	Delta string

	ProviderMetadata Metadata
}

func (TextDelta) isStreamPart() {}

type TextEnd struct {
	ID               string
	ProviderMetadata Metadata
}

func (TextEnd) isStreamPart() {}

type ReasoningStart struct {
	ID               string
	ProviderMetadata Metadata
}

func (ReasoningStart) isStreamPart() {}

type ReasoningDelta struct {
	ID    string
	Delta string

	ProviderMetadata Metadata
}

func (ReasoningDelta) isStreamPart() {}

type ReasoningEnd struct {
	ID               string
	ProviderMetadata Metadata
}

func (ReasoningEnd) isStreamPart() {}

type ToolInputStart struct {
	ID               string
	ToolName         string
	ProviderExecuted bool
	Dynamic          bool
}

func (ToolInputStart) isStreamPart() {}

type ToolInputDelta struct {
	ID    string
	Delta string
}

func (ToolInputDelta) isStreamPart() {}

type ToolInputEnd struct {
	ID string
}

func (ToolInputEnd) isStreamPart() {}

// The *StreamPart types wrap complete content items inside a stream.
type ToolCallStreamPart struct{ ToolCall }

func (ToolCallStreamPart) isStreamPart() {}

type ToolResultStreamPart struct{ ToolResult }

func (ToolResultStreamPart) isStreamPart() {}

type FileStreamPart struct{ File }

func (FileStreamPart) isStreamPart() {}

type SourceStreamPart struct{ Source }

func (SourceStreamPart) isStreamPart() {}

type Finish struct {
	FinishReason     FinishReason
	Usage            Usage
	ProviderMetadata Metadata
}

func (Finish) isStreamPart() {}

type Raw struct {
	Value any
}

func (Raw) isStreamPart() {}

type ErrorPart struct {
	Err error
}

func (ErrorPart) isStreamPart() {}

// Stream is a pull-based sequence of stream parts.
//
//	for s.Next() {
//		part := s.Part()
//	}
//	if err := s.Err(); err != nil { ... }
//
// Implementations must stop producing once the context passed to DoStream is
// done and report its error from Err.
type Stream interface {
	Next() bool
	Part() StreamPart
	Err() error
	Close() error
}

// SliceStream replays a fixed list of parts. It is useful for tests and for
// providers that buffer a whole response.
type SliceStream struct {
	parts  []StreamPart
	i      int
	err    error
	closed bool
}

func NewSliceStream(parts ...StreamPart) *SliceStream {
	return &SliceStream{parts: parts, i: -1}
}

// WithError makes the stream fail with err after replaying its parts.
func (s *SliceStream) WithError(err error) *SliceStream {
	s.err = err
	return s
}

func (s *SliceStream) Next() bool {
	if s.closed {
		return false
	}
	if s.i+1 >= len(s.parts) {
		s.i = len(s.parts)
		return false
	}
	s.i++
	return true
}

func (s *SliceStream) Part() StreamPart {
	if s.i < 0 || s.i >= len(s.parts) {
		return nil
	}
	return s.parts[s.i]
}

func (s *SliceStream) Err() error {
	if s.closed && s.i < len(s.parts) {
		return errStreamClosed
	}
	if s.i >= len(s.parts) {
		return s.err
	}
	return nil
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

var errStreamClosed = errors.New("stream closed")
