package myaudio

import "iter"

// Windows is a restartable sequence of fixed-length windows over a buffer.
// It yields floor(len(buf)/stride) windows starting at multiples of stride;
// a trailing partial stride is dropped, never padded. When length exceeds
// stride the last windows are truncated at the end of the buffer.
//
// Segments share memory with the buffer and are capped so appending to one
// cannot overwrite the next.
type Windows struct {
	buf    []float32
	stride int
	length int
}

// NewWindows returns the windows of buf. Non-positive stride or length
// yields an empty sequence.
func NewWindows(buf []float32, stride, length int) Windows {
	return Windows{buf: buf, stride: stride, length: length}
}

// Len returns the number of windows.
func (w Windows) Len() int {
	if w.stride <= 0 || w.length <= 0 {
		return 0
	}
	return len(w.buf) / w.stride
}

// At returns the sample offset and segment of window i.
func (w Windows) At(i int) (offset int, segment []float32) {
	start := i * w.stride
	end := min(start+w.length, len(w.buf))
	return start, w.buf[start:end:end]
}

// All iterates (offset, segment) pairs in ascending offset order.
func (w Windows) All() iter.Seq2[int, []float32] {
	return func(yield func(int, []float32) bool) {
		for i := range w.Len() {
			if !yield(w.At(i)) {
				return
			}
		}
	}
}
