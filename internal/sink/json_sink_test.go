package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(hostname string) *models.Snapshot {
	return &models.Snapshot{
		Timestamp:    time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Host:         models.HostSummary{Hostname: hostname, SerialNumber: models.Pending},
		GPUs:         []string{"Apple M2 Max"},
		StorageState: models.StorageLoading,
	}
}

func decodeLines(t *testing.T, data []byte) []models.Snapshot {
	t.Helper()
	var out []models.Snapshot
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var raw map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &raw))
		assert.Equal(t, "loading", raw["storage_state"])

		var snap struct {
			Host models.HostSummary `json:"host"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &snap))
		out = append(out, models.Snapshot{Host: snap.Host})
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJSONSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewJSONSink(&buf, CompressionNone)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), snapshot("a.local")))
	require.NoError(t, s.Write(context.Background(), snapshot("b.local")))
	require.NoError(t, s.Write(context.Background(), nil))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "a.local", lines[0].Host.Hostname)
	assert.Equal(t, "b.local", lines[1].Host.Hostname)
	assert.NoError(t, s.Close())
}

func TestJSONSinkGzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.jsonl.gz")
	s, err := OpenJSONSink(path, CompressionGzip)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), snapshot("studio.local")))
	require.NoError(t, s.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader, err := gzip.NewReader(file)
	require.NoError(t, err)
	var plain bytes.Buffer
	_, err = plain.ReadFrom(reader)
	require.NoError(t, err)

	lines := decodeLines(t, plain.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "studio.local", lines[0].Host.Hostname)
}

func TestJSONSinkCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewJSONSink(&buf, CompressionNone)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Write(ctx, snapshot("x")), context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestJSONSinkZstd(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewJSONSink(&buf, CompressionZstd)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), snapshot("a.local")))
	require.NoError(t, s.Write(context.Background(), snapshot("b.local")))
	require.NoError(t, s.Close())

	decoder, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer decoder.Close()

	var plain bytes.Buffer
	_, err = plain.ReadFrom(decoder)
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, plain.Bytes()), 2)
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"":     CompressionNone,
		"none": CompressionNone,
		"gzip": CompressionGzip,
		"zstd": CompressionZstd,
	} {
		got, err := ParseCompression(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := ParseCompression("lz4")
	assert.Error(t, err)
}
