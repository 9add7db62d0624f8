package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/monify-labs/hostwatch/pkg/models"
)

// Compression names a stream encoding for the sink output
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression accepts "", "none", "gzip" and "zstd"
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, CompressionZstd:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown compression %q", name)
	}
}

// compressor is satisfied by both gzip.Writer and zstd.Encoder
type compressor interface {
	io.Writer
	Flush() error
	Close() error
}

// JSONSink writes one JSON document per line
type JSONSink struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	comp   compressor
	closer io.Closer
	enc    *json.Encoder
}

// NewJSONSink writes to w using the given stream compression
func NewJSONSink(w io.Writer, compression Compression) (*JSONSink, error) {
	s := &JSONSink{}
	if closer, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		s.closer = closer
	}
	s.buf = bufio.NewWriter(w)

	switch compression {
	case CompressionGzip:
		s.comp = gzip.NewWriter(s.buf)
	case CompressionZstd:
		encoder, err := zstd.NewWriter(s.buf)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		s.comp = encoder
	}

	var out io.Writer = s.buf
	if s.comp != nil {
		out = s.comp
	}
	s.enc = json.NewEncoder(out)
	return s, nil
}

// OpenJSONSink appends to the file at path, or writes to standard output
// when path is empty
func OpenJSONSink(path string, compression Compression) (*JSONSink, error) {
	if path == "" {
		return NewJSONSink(os.Stdout, compression)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink: %w", err)
	}
	s, err := NewJSONSink(file, compression)
	if err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

// Write encodes snapshot and flushes it so every line is visible as soon as
// it is written
func (s *JSONSink) Write(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if s.comp != nil {
		if err := s.comp.Flush(); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Close terminates the compressed stream and closes the underlying file
func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.comp != nil {
		if err := s.comp.Close(); err != nil {
			return fmt.Errorf("failed to close compressor: %w", err)
		}
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
