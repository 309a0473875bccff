package inference

import (
	"fmt"
	"slices"
	"time"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/errors"
)

// ErrUnknownKeyword is returned when no model is registered for a keyword.
var ErrUnknownKeyword = errors.NewStd("unknown keyword")

// Registry maps keywords to an ordered list of models. It is immutable once
// built and safe to share between goroutines.
type Registry struct {
	keywords []string
	models   map[string][]Model
}

// Builder collects registrations before freezing them into a Registry.
type Builder struct {
	keywords []string
	models   map[string][]Model
	err      error
}

// NewBuilder returns an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{models: make(map[string][]Model)}
}

// Register appends a model for keyword. Registration order is preserved and
// decides the order of predictions for the same window.
func (b *Builder) Register(keyword string, m Model) *Builder {
	if b.err != nil {
		return b
	}
	if keyword == "" || m == nil {
		b.err = fmt.Errorf("invalid registration for keyword %q", keyword)
		return b
	}
	for _, existing := range b.models[keyword] {
		if existing.ID() == m.ID() {
			b.err = fmt.Errorf("model %q already registered for keyword %q", m.ID(), keyword)
			return b
		}
	}
	if _, ok := b.models[keyword]; !ok {
		b.keywords = append(b.keywords, keyword)
	}
	b.models[keyword] = append(b.models[keyword], m)
	return b
}

// Build returns the frozen Registry.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, errors.New(b.err).
			Component("inference").
			Category(errors.CategoryConfiguration).
			Build()
	}
	r := &Registry{
		keywords: slices.Clone(b.keywords),
		models:   make(map[string][]Model, len(b.models)),
	}
	for k, ms := range b.models {
		r.models[k] = slices.Clone(ms)
	}
	return r, nil
}

// FromSettings builds the registry described by the detection settings.
func FromSettings(s *conf.DetectionSettings) (*Registry, error) {
	b := NewBuilder()
	for i, ms := range s.Models {
		switch ms.Type {
		case "constant":
			b.Register(ms.Keyword, ConstantModel{Name: ms.ID, Confidence: ms.Value})
		case "random":
			seed := uint64(ms.Seed)
			if ms.Seed == 0 {
				seed = uint64(time.Now().UnixNano()) + uint64(i)
			}
			b.Register(ms.Keyword, NewRandomModel(ms.ID, seed))
		default:
			return nil, errors.Newf("unknown model type %q for %s/%s", ms.Type, ms.Keyword, ms.ID).
				Component("inference").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return b.Build()
}

// Keywords returns the registered keywords in registration order.
func (r *Registry) Keywords() []string {
	return slices.Clone(r.keywords)
}

// Models returns the models for keyword in registration order.
func (r *Registry) Models(keyword string) ([]Model, error) {
	ms, ok := r.models[keyword]
	if !ok {
		return nil, errors.New(fmt.Errorf("%w: %q", ErrUnknownKeyword, keyword)).
			Component("inference").
			Category(errors.CategoryNotFound).
			Context("keyword", keyword).
			Build()
	}
	return slices.Clone(ms), nil
}

// Has reports whether keyword has at least one model.
func (r *Registry) Has(keyword string) bool {
	_, ok := r.models[keyword]
	return ok
}
