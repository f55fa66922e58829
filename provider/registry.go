package provider

import (
	"fmt"
	"strings"
	"sync"
)

// Registry resolves models by "<provider>:<model>" ids. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[ModelKind]map[string]Model
}

func NewRegistry() *Registry {
	return &Registry{models: map[ModelKind]map[string]Model{}}
}

// ModelKey returns the registry id of m.
func ModelKey(m Model) string {
	return m.Provider() + ":" + m.ModelID()
}

func (r *Registry) register(kind ModelKind, m Model) error {
	if m == nil {
		return fmt.Errorf("%s is nil", kind)
	}
	if m.Provider() == "" || m.ModelID() == "" {
		return fmt.Errorf("%s requires provider and model id", kind)
	}
	if strings.Contains(m.Provider(), ":") {
		return fmt.Errorf("provider name %q must not contain ':'", m.Provider())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.models[kind]
	if byID == nil {
		byID = map[string]Model{}
		r.models[kind] = byID
	}
	key := ModelKey(m)
	if _, exists := byID[key]; exists {
		return fmt.Errorf("%s %q already registered", kind, key)
	}
	byID[key] = m
	return nil
}

func (r *Registry) lookup(kind ModelKind, id string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[kind][id]
	if !ok {
		return nil, &NoSuchModelError{ModelID: id, Kind: kind}
	}
	return m, nil
}

func (r *Registry) RegisterLanguageModel(m LanguageModel) error {
	return r.register(KindLanguage, m)
}

func (r *Registry) RegisterEmbeddingModel(m EmbeddingModel) error {
	return r.register(KindEmbedding, m)
}

func (r *Registry) RegisterImageModel(m ImageModel) error {
	return r.register(KindImage, m)
}

func (r *Registry) RegisterRerankingModel(m RerankingModel) error {
	return r.register(KindReranking, m)
}

func (r *Registry) RegisterSpeechModel(m SpeechModel) error {
	return r.register(KindSpeech, m)
}

func (r *Registry) RegisterTranscriptionModel(m TranscriptionModel) error {
	return r.register(KindTranscription, m)
}

func (r *Registry) LanguageModel(id string) (LanguageModel, error) {
	m, err := r.lookup(KindLanguage, id)
	if err != nil {
		return nil, err
	}
	return m.(LanguageModel), nil
}

func (r *Registry) EmbeddingModel(id string) (EmbeddingModel, error) {
	m, err := r.lookup(KindEmbedding, id)
	if err != nil {
		return nil, err
	}
	return m.(EmbeddingModel), nil
}

func (r *Registry) ImageModel(id string) (ImageModel, error) {
	m, err := r.lookup(KindImage, id)
	if err != nil {
		return nil, err
	}
	return m.(ImageModel), nil
}

func (r *Registry) RerankingModel(id string) (RerankingModel, error) {
	m, err := r.lookup(KindReranking, id)
	if err != nil {
		return nil, err
	}
	return m.(RerankingModel), nil
}

func (r *Registry) SpeechModel(id string) (SpeechModel, error) {
	m, err := r.lookup(KindSpeech, id)
	if err != nil {
		return nil, err
	}
	return m.(SpeechModel), nil
}

func (r *Registry) TranscriptionModel(id string) (TranscriptionModel, error) {
	m, err := r.lookup(KindTranscription, id)
	if err != nil {
		return nil, err
	}
	return m.(TranscriptionModel), nil
}
