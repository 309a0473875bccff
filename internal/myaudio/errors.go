package myaudio

import (
	"fmt"

	"github.com/tphakala/audiophile/internal/errors"
)

// Sentinel errors returned by Loader. Every load failure matches
// ErrAudioNotFound; decode failures additionally match ErrAudioUnreadable.
var (
	ErrAudioNotFound   = errors.NewStd("audio not found")
	ErrAudioUnreadable = fmt.Errorf("%w: unreadable", ErrAudioNotFound)
)

func notFoundError(path string, cause error) error {
	return errors.New(fmt.Errorf("%w: %w", ErrAudioNotFound, cause)).
		Component("myaudio").
		Category(errors.CategoryNotFound).
		Context("operation", "open_audio").
		Context("file_extension", extensionOf(path)).
		Build()
}

func unreadableError(path string, cause error) error {
	return errors.New(fmt.Errorf("%w: %w", ErrAudioUnreadable, cause)).
		Component("myaudio").
		Category(errors.CategoryNotFound).
		Context("operation", "decode_audio").
		Context("file_extension", extensionOf(path)).
		Build()
}
