package core

// streaming.go reads input through a byte-counting reader so that uploads
// and files are rejected as soon as they pass MaxFileSize, without trusting
// a size reported up front.

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// CountingReader wraps an io.Reader to track bytes read and fail once more
// than Limit bytes have been seen. A non-positive Limit disables the check.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewCountingReader creates a counting reader capped at limit bytes.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, r.tooLarge()
	}
	return n, err
}

func (r *CountingReader) tooLarge() error {
	return fmt.Errorf("%w: more than %d bytes (%dMB limit)", ErrFileTooLarge, r.Limit, r.Limit/(1024*1024))
}

// ReadText reads r up to MaxFileSize bytes and decodes it.
func ReadText(r io.Reader) (string, TextInfo, error) {
	cr := NewCountingReader(r, MaxFileSize)
	data, err := io.ReadAll(cr)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return "", TextInfo{}, err
		}
		return "", TextInfo{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	text, info := DecodeText(data)
	return text, info, nil
}

// LoadText reads the file at path and decodes it.
func LoadText(path string) (string, TextInfo, error) {
	if path == "" {
		return "", TextInfo{}, ErrNoFile
	}

	f, err := os.Open(path)
	if err != nil {
		return "", TextInfo{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Size() > MaxFileSize {
		return "", TextInfo{}, fmt.Errorf("%w: %d bytes exceeds %dMB limit", ErrFileTooLarge, st.Size(), MaxFileSize/(1024*1024))
	}
	return ReadText(f)
}
