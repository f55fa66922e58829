package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

// RerankRequest ranks Documents against Query. Documents must all encode
// to JSON strings or all to JSON objects.
type RerankRequest[D any] struct {
	Model     provider.RerankingModel
	Documents []D
	Query     string
	// TopN limits the result; nil returns every document.
	TopN *int

	MaxRetries      *int
	Headers         map[string]string
	ProviderOptions ProviderOptions
	Timeout         time.Duration
	Logger          *slog.Logger
}

type RankedDocument[D any] struct {
	OriginalIndex int
	Score         float64
	Document      D
}

type RerankResult[D any] struct {
	OriginalDocuments []D
	// Ranking is sorted by descending score.
	Ranking []RankedDocument[D]

	ProviderMetadata ProviderMetadata
	Response         provider.ResponseMetadata
}

// RerankedDocuments returns the documents of Ranking in order.
func (r *RerankResult[D]) RerankedDocuments() []D {
	out := make([]D, len(r.Ranking))
	for i, rd := range r.Ranking {
		out[i] = rd.Document
	}
	return out
}

func Rerank[D any](ctx context.Context, req RerankRequest[D]) (*RerankResult[D], error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	if err := checkSpecificationVersion(req.Model); err != nil {
		return nil, err
	}
	if req.TopN != nil && *req.TopN < 0 {
		return nil, &InvalidArgumentError{Parameter: "topN", Value: *req.TopN, Reason: "must be >= 0"}
	}
	retrier, err := PrepareRetries(req.MaxRetries, orDiscard(req.Logger))
	if err != nil {
		return nil, err
	}
	if len(req.Documents) == 0 {
		return &RerankResult[D]{
			OriginalDocuments: []D{},
			Ranking:           []RankedDocument[D]{},
			Response:          provider.ResponseMetadata{Timestamp: time.Now(), ModelID: req.Model.ModelID()},
		}, nil
	}

	docs, err := rerankDocuments(req.Documents)
	if err != nil {
		return nil, err
	}
	resp, err := retryCall(ctx, retrier, func(ctx context.Context) (*provider.RerankResponse, error) {
		return req.Model.DoRerank(ctx, provider.RerankOptions{
			Documents:       docs,
			Query:           req.Query,
			TopN:            req.TopN,
			Headers:         cloneStringMap(req.Headers),
			ProviderOptions: req.ProviderOptions,
		})
	})
	if err != nil {
		return nil, err
	}

	ranking := make([]RankedDocument[D], 0, len(resp.Ranking))
	for _, r := range resp.Ranking {
		if r.Index < 0 || r.Index >= len(req.Documents) {
			return nil, &ModelError{
				Provider: req.Model.Provider(),
				Message:  fmt.Sprintf("rerank index %d out of range for %d documents", r.Index, len(req.Documents)),
			}
		}
		ranking = append(ranking, RankedDocument[D]{
			OriginalIndex: r.Index,
			Score:         r.RelevanceScore,
			Document:      req.Documents[r.Index],
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].Score > ranking[j].Score })
	if req.TopN != nil && len(ranking) > *req.TopN {
		ranking = ranking[:*req.TopN]
	}

	out := &RerankResult[D]{
		OriginalDocuments: req.Documents,
		Ranking:           ranking,
		ProviderMetadata:  resp.ProviderMetadata,
	}
	if resp.Response != nil {
		out.Response = *resp.Response
	}
	if out.Response.Timestamp.IsZero() {
		out.Response.Timestamp = time.Now()
	}
	if out.Response.ModelID == "" {
		out.Response.ModelID = req.Model.ModelID()
	}
	return out, nil
}

// rerankDocuments encodes documents as either texts or objects.
func rerankDocuments[D any](docs []D) (provider.RerankDocuments, error) {
	var out provider.RerankDocuments
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return provider.RerankDocuments{}, &InvalidArgumentError{Parameter: "documents", Value: i, Reason: err.Error()}
		}
		var kind provider.RerankDocumentsType
		switch {
		case len(b) > 0 && b[0] == '"':
			kind = provider.RerankText
			var s string
			if err := json.Unmarshal(b, &s); err != nil {
				return provider.RerankDocuments{}, &InvalidArgumentError{Parameter: "documents", Value: i, Reason: err.Error()}
			}
			out.Texts = append(out.Texts, s)
		case len(b) > 0 && b[0] == '{':
			kind = provider.RerankObject
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				return provider.RerankDocuments{}, &InvalidArgumentError{Parameter: "documents", Value: i, Reason: err.Error()}
			}
			out.Objects = append(out.Objects, m)
		default:
			return provider.RerankDocuments{}, &InvalidArgumentError{Parameter: "documents", Value: i, Reason: "documents must be strings or objects"}
		}
		if i == 0 {
			out.Type = kind
		} else if kind != out.Type {
			return provider.RerankDocuments{}, &InvalidArgumentError{Parameter: "documents", Value: i, Reason: "documents must all be strings or all be objects"}
		}
	}
	return out, nil
}
