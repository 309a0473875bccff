// Package generation manages prediction generations. Each run over a file
// stores its predictions under a fresh reference; promoting the reference
// makes that generation the file's live one.
package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/tphakala/audiophile/internal/datastore/entities"
	"github.com/tphakala/audiophile/internal/datastore/repository"
	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/errors"
)

// Manager converts drafts into stored predictions and controls which
// generation of a file is live.
type Manager struct {
	repo  repository.Repository
	newID func() string
}

// NewManager returns a Manager over repo.
func NewManager(repo repository.Repository) *Manager {
	return &Manager{repo: repo, newID: uuid.NewString}
}

// Repository returns the underlying repository for read access.
func (m *Manager) Repository() repository.Repository { return m.repo }

// GetOrCreateFile returns the file with exactly this name and duration.
func (m *Manager) GetOrCreateFile(ctx context.Context, name string, duration int) (*entities.File, bool, error) {
	return m.repo.GetOrCreateFile(ctx, name, duration)
}

// NewReference returns a new random (version 4) UUID string.
func (m *Manager) NewReference() string {
	return m.newID()
}

// LiveConfidences returns the confidence column of the file's live generation.
func (m *Manager) LiveConfidences(ctx context.Context, file *entities.File) ([]float64, error) {
	if file.LiveReference() == "" {
		return nil, nil
	}
	preds, err := m.repo.LivePredictions(ctx, file.ID)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(preds))
	for i, p := range preds {
		out[i] = p.Confidence
	}
	return out, nil
}

// PersistBatch stores drafts under reference without promoting it.
// Either every draft is stored or none is.
func (m *Manager) PersistBatch(ctx context.Context, file *entities.File, reference string, drafts []detection.Draft) error {
	if err := validReference(reference); err != nil {
		return err
	}
	return m.repo.InsertPredictions(ctx, toPredictions(file.ID, reference, drafts))
}

// Promote makes reference the live generation of file.
func (m *Manager) Promote(ctx context.Context, file *entities.File, reference string) error {
	if err := validReference(reference); err != nil {
		return err
	}
	if err := m.repo.Promote(ctx, file.ID, reference); err != nil {
		return err
	}
	file.CurrentReference = &reference
	return nil
}

// Commit persists drafts under reference and promotes it in one
// transaction. On failure the file keeps its previous reference.
func (m *Manager) Commit(ctx context.Context, file *entities.File, reference string, drafts []detection.Draft) error {
	return m.commit(ctx, file, reference, drafts, true)
}

// Stage persists drafts under reference in one transaction but leaves the
// live generation unchanged. Used for quarantined batches.
func (m *Manager) Stage(ctx context.Context, file *entities.File, reference string, drafts []detection.Draft) error {
	return m.commit(ctx, file, reference, drafts, false)
}

func (m *Manager) commit(ctx context.Context, file *entities.File, reference string, drafts []detection.Draft, promote bool) error {
	if err := validReference(reference); err != nil {
		return err
	}
	if err := m.repo.Commit(ctx, file.ID, reference, toPredictions(file.ID, reference, drafts), promote); err != nil {
		return err
	}
	if promote {
		file.CurrentReference = &reference
	}
	return nil
}

func toPredictions(fileID uint, reference string, drafts []detection.Draft) []*entities.Prediction {
	preds := make([]*entities.Prediction, len(drafts))
	for i := range drafts {
		preds[i] = &entities.Prediction{
			FileID:     fileID,
			Reference:  reference,
			Utterance:  drafts[i].Utterance,
			ModelID:    drafts[i].ModelID,
			Time:       drafts[i].Time,
			Confidence: drafts[i].Confidence,
		}
	}
	return preds
}

func validReference(reference string) error {
	if reference == "" {
		return errors.Newf("empty generation reference").
			Component("generation").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
