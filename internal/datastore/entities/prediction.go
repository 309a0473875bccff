package entities

import "time"

// Prediction is one detection event of a keyword in a window of a file.
// Rows are written once per generation and never updated.
type Prediction struct {
	ID         uint      `gorm:"primaryKey"`
	FileID     uint      `gorm:"not null;index:idx_prediction_generation,priority:1"`
	Reference  string    `gorm:"type:varchar(36);not null;index:idx_prediction_generation,priority:2"`
	Utterance  string    `gorm:"type:varchar(100);not null"`
	ModelID    string    `gorm:"column:model_id;type:varchar(100);not null"`
	Time       float64   `gorm:"not null"` // seconds from the start of the file
	Confidence float64   `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	File *File `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (Prediction) TableName() string {
	return "predictions"
}
