package entities

import "time"

// File is one audio asset seen in the media directory.
type File struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(255);not null;uniqueIndex:idx_file_identity,priority:1"`
	// Duration is whole seconds of audio at the pipeline sample rate.
	Duration int `gorm:"not null;uniqueIndex:idx_file_identity,priority:2"`
	// CurrentReference is the live generation, nil until the first promote.
	CurrentReference *string   `gorm:"type:varchar(36);index"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (File) TableName() string {
	return "files"
}

// LiveReference returns the current reference or "" when none was promoted.
func (f *File) LiveReference() string {
	if f == nil || f.CurrentReference == nil {
		return ""
	}
	return *f.CurrentReference
}
