package repository

import (
	"context"
	"fmt"

	"github.com/tphakala/audiophile/internal/datastore/entities"
	"github.com/tphakala/audiophile/internal/errors"
	"gorm.io/gorm"
)

// repository implements Repository.
type repository struct {
	db *gorm.DB
}

// New creates a Repository over an initialized database.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetOrCreateFile retrieves an existing file or creates a new one.
func (r *repository) GetOrCreateFile(ctx context.Context, name string, duration int) (*entities.File, bool, error) {
	if name == "" || duration < 0 {
		return nil, false, fmt.Errorf("%w: name %q duration %d", ErrInvalidInput, name, duration)
	}

	var file entities.File
	err := r.db.WithContext(ctx).
		Where("name = ? AND duration = ?", name, duration).
		First(&file).Error
	if err == nil {
		return &file, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, dbError(err, "get_file")
	}

	file = entities.File{Name: name, Duration: duration}
	createErr := r.db.WithContext(ctx).Create(&file).Error
	if createErr != nil {
		// Another worker or instance may have created it first.
		findErr := r.db.WithContext(ctx).
			Where("name = ? AND duration = ?", name, duration).
			First(&file).Error
		if findErr != nil {
			return nil, false, dbError(createErr, "create_file")
		}
		return &file, false, nil
	}

	return &file, true, nil
}

// GetFile retrieves a file by its ID.
func (r *repository) GetFile(ctx context.Context, id uint) (*entities.File, error) {
	var file entities.File
	err := r.db.WithContext(ctx).First(&file, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, dbError(err, "get_file")
	}
	return &file, nil
}

// ListFiles retrieves all files.
func (r *repository) ListFiles(ctx context.Context) ([]*entities.File, error) {
	var files []*entities.File
	err := r.db.WithContext(ctx).
		Order("name ASC, duration ASC").
		Find(&files).Error
	if err != nil {
		return nil, dbError(err, "list_files")
	}
	return files, nil
}

// live scopes a prediction query to the file's current reference. The join
// keeps the reference lookup and the row read in one statement.
func (r *repository) live(ctx context.Context, fileID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&entities.Prediction{}).
		Joins("JOIN files ON files.id = predictions.file_id AND files.current_reference = predictions.reference").
		Where("predictions.file_id = ?", fileID).
		Order("predictions.time ASC, predictions.id ASC")
}

// LivePredictions retrieves the predictions of the current reference.
func (r *repository) LivePredictions(ctx context.Context, fileID uint) ([]*entities.Prediction, error) {
	var preds []*entities.Prediction
	if err := r.live(ctx, fileID).Find(&preds).Error; err != nil {
		return nil, dbError(err, "live_predictions")
	}
	return preds, nil
}

// LivePredictionsByModel retrieves live predictions of one model.
func (r *repository) LivePredictionsByModel(ctx context.Context, fileID uint, modelID string) ([]*entities.Prediction, error) {
	var preds []*entities.Prediction
	err := r.live(ctx, fileID).
		Where("predictions.model_id = ?", modelID).
		Find(&preds).Error
	if err != nil {
		return nil, dbError(err, "live_predictions")
	}
	return preds, nil
}

// PredictionsByReference retrieves the predictions of one generation.
func (r *repository) PredictionsByReference(ctx context.Context, fileID uint, reference string) ([]*entities.Prediction, error) {
	var preds []*entities.Prediction
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND reference = ?", fileID, reference).
		Order("time ASC, id ASC").
		Find(&preds).Error
	if err != nil {
		return nil, dbError(err, "reference_predictions")
	}
	return preds, nil
}

// References lists the generations stored for a file.
func (r *repository) References(ctx context.Context, fileID uint) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).
		Model(&entities.Prediction{}).
		Where("file_id = ?", fileID).
		Distinct().
		Pluck("reference", &refs).Error
	if err != nil {
		return nil, dbError(err, "list_references")
	}
	return refs, nil
}

// InsertPredictions stores predictions atomically.
func (r *repository) InsertPredictions(ctx context.Context, predictions []*entities.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(predictions, batchSize).Error
	})
	if err != nil {
		return persistenceError(err, "insert_predictions")
	}
	return nil
}

// Promote makes reference the file's live generation.
func (r *repository) Promote(ctx context.Context, fileID uint, reference string) error {
	if err := promote(r.db.WithContext(ctx), fileID, reference); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return err
		}
		return persistenceError(err, "promote")
	}
	return nil
}

func promote(tx *gorm.DB, fileID uint, reference string) error {
	if reference == "" {
		return fmt.Errorf("%w: empty reference", ErrInvalidInput)
	}
	result := tx.Model(&entities.File{}).
		Where("id = ?", fileID).
		Update("current_reference", reference)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(fileID)
	}
	return nil
}

// Commit persists and optionally promotes a generation in one transaction.
func (r *repository) Commit(ctx context.Context, fileID uint, reference string, predictions []*entities.Prediction, promoteRef bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range predictions {
			p.FileID = fileID
			p.Reference = reference
		}
		if len(predictions) > 0 {
			if err := tx.CreateInBatches(predictions, batchSize).Error; err != nil {
				return err
			}
		}
		if promoteRef {
			return promote(tx, fileID, reference)
		}
		return nil
	})
	if err != nil {
		return persistenceError(err, "commit", "file_id", fileID, "reference", reference)
	}
	return nil
}

// CountPredictions returns the number of stored prediction rows.
func (r *repository) CountPredictions(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Prediction{}).Count(&count).Error
	return count, err
}
