package repository

import (
	"context"

	"github.com/tphakala/audiophile/internal/datastore/entities"
)

// batchSize bounds the rows per INSERT statement.
const batchSize = 100

// Repository provides access to the files and predictions tables.
type Repository interface {
	// GetOrCreateFile returns the file matching name and duration exactly,
	// creating it when absent. created reports whether a row was inserted.
	GetOrCreateFile(ctx context.Context, name string, duration int) (file *entities.File, created bool, err error)

	// GetFile retrieves a file by ID.
	// Returns ErrFileNotFound if not found.
	GetFile(ctx context.Context, id uint) (*entities.File, error)

	// ListFiles returns all files ordered by name then duration.
	ListFiles(ctx context.Context) ([]*entities.File, error)

	// LivePredictions returns the predictions of the file's current
	// reference, ordered by time. A file that was never promoted has none.
	LivePredictions(ctx context.Context, fileID uint) ([]*entities.Prediction, error)

	// LivePredictionsByModel is LivePredictions restricted to one model.
	LivePredictionsByModel(ctx context.Context, fileID uint, modelID string) ([]*entities.Prediction, error)

	// PredictionsByReference returns the predictions of any generation,
	// live or superseded.
	PredictionsByReference(ctx context.Context, fileID uint, reference string) ([]*entities.Prediction, error)

	// References returns the distinct generations stored for a file.
	References(ctx context.Context, fileID uint) ([]string, error)

	// InsertPredictions stores predictions in one transaction.
	// Either every row is written or none is.
	InsertPredictions(ctx context.Context, predictions []*entities.Prediction) error

	// Promote sets the file's current reference.
	// Returns ErrFileNotFound if the file does not exist.
	Promote(ctx context.Context, fileID uint, reference string) error

	// Commit inserts predictions under reference and, when promote is set,
	// makes reference live, all in a single transaction. On failure the
	// returned error matches ErrPersistence and nothing was written.
	Commit(ctx context.Context, fileID uint, reference string, predictions []*entities.Prediction, promote bool) error

	// CountPredictions returns the number of stored predictions.
	CountPredictions(ctx context.Context) (int64, error)
}
