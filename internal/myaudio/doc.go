// Package myaudio decodes WAV and FLAC recordings, resamples them to the
// pipeline rate and slices them into fixed-length inference windows.
package myaudio
