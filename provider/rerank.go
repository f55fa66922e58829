package provider

import "context"

type RerankingModel interface {
	Model

	DoRerank(ctx context.Context, opts RerankOptions) (*RerankResponse, error)
}

type RerankDocumentsType string

const (
	RerankText   RerankDocumentsType = "text"
	RerankObject RerankDocumentsType = "object"
)

// RerankDocuments holds either strings or JSON objects, never both.
type RerankDocuments struct {
	Type    RerankDocumentsType
	Texts   []string
	Objects []map[string]any
}

func (d RerankDocuments) Len() int {
	if d.Type == RerankObject {
		return len(d.Objects)
	}
	return len(d.Texts)
}

type RerankOptions struct {
	Documents RerankDocuments
	Query     string
	TopN      *int

	Headers         map[string]string
	ProviderOptions ProviderOptions
}

type RankedIndex struct {
	Index          int
	RelevanceScore float64
}

type RerankResponse struct {
	// Ranking is sorted by descending relevance.
	Ranking []RankedIndex

	ProviderMetadata Metadata
	Response         *ResponseMetadata
}
