package profiler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func fixedRunner(stdout string, err error) (Runner, *[]string) {
	var calls []string
	return func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		calls = append(calls, name)
		calls = append(calls, args...)
		return []byte(stdout), []byte("stderr noise"), err
	}, &calls
}

func TestQueryParsesDocument(t *testing.T) {
	run, calls := fixedRunner(`{"SPHardwareDataType":[{"serial_number":"C02ABC123"}]}`, nil)
	p := New(testLogger(), WithRunner(run))

	doc, err := p.Query(context.Background(), "SPHardwareDataType", "SPDisplaysDataType", "SPHardwareDataType")
	require.NoError(t, err)

	items, ok := ArrayAt(doc, "SPHardwareDataType")
	require.True(t, ok)
	assert.Len(t, items, 1)

	assert.Equal(t, []string{
		"system_profiler", "-json", "-detailLevel", "mini",
		"SPDisplaysDataType", "SPHardwareDataType",
	}, *calls)
}

func TestQueryProcessFailure(t *testing.T) {
	run, _ := fixedRunner("", errors.New("exit status 1"))
	p := New(testLogger(), WithRunner(run))

	_, err := p.Query(context.Background(), "SPHardwareDataType")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInventoryUnavailable))
	assert.Contains(t, err.Error(), "stderr noise")
}

func TestQueryUnparsableOutput(t *testing.T) {
	run, _ := fixedRunner(`{"SPHardwareDataType": [`, nil)
	p := New(testLogger(), WithRunner(run))

	_, err := p.Query(context.Background(), "SPHardwareDataType")
	assert.ErrorIs(t, err, ErrInventoryUnavailable)
}

func TestQueryTimeout(t *testing.T) {
	run := func(ctx context.Context, _ string, _ ...string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, nil, errors.New("signal: killed")
	}
	p := New(testLogger(), WithRunner(run), WithTimeout(10*time.Millisecond))

	_, err := p.Query(context.Background(), "SPStorageDataType")
	require.ErrorIs(t, err, ErrInventoryUnavailable)
	assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
}

func TestWithCommand(t *testing.T) {
	run, calls := fixedRunner(`{}`, nil)
	p := New(testLogger(), WithRunner(run), WithCommand("/opt/bin/inventory", "--json"))

	_, err := p.Query(context.Background(), "disks")
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/bin/inventory", "--json", "disks"}, *calls)
}
