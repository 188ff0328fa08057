package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alignment-core/foodalign/internal/domain/align"
)

func TestFileSinkEmitWritesOneNDJSONLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.ndjson")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Emit(context.Background(), align.Telemetry{ImageID: "img1", FoodIndex: 0, Query: "grape"}))
	require.NoError(t, sink.Emit(context.Background(), align.Telemetry{ImageID: "img1", FoodIndex: 1, Query: "potato"}))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first align.Telemetry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "grape", first.Query)

	var second align.Telemetry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, 1, second.FoodIndex)
}

func TestFileSinkAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.ndjson")

	sinkA, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sinkA.Emit(context.Background(), align.Telemetry{Query: "first"}))
	require.NoError(t, sinkA.Close())

	sinkB, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sinkB.Emit(context.Background(), align.Telemetry{Query: "second"}))
	require.NoError(t, sinkB.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(string(b))
	require.Len(t, lines, 2)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

type fakeFailingSink struct {
	failOn int
	calls  int
}

func (f *fakeFailingSink) Emit(ctx context.Context, event align.Telemetry) error {
	f.calls++
	if f.calls == f.failOn {
		return assertErr{}
	}
	return nil
}

type assertErr struct{}

func (assertErr) Error() string { return "sink failure" }

func TestMultiSinkStopsAtFirstError(t *testing.T) {
	first := &fakeFailingSink{failOn: 1}
	second := &fakeFailingSink{failOn: 1}
	multi := NewMultiSink(first, second)

	err := multi.Emit(context.Background(), align.Telemetry{Query: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "second sink must not be called once the first fails")
}

func TestMultiSinkFansOutToAllOnSuccess(t *testing.T) {
	first := &fakeFailingSink{failOn: -1}
	second := &fakeFailingSink{failOn: -1}
	multi := NewMultiSink(first, second)

	require.NoError(t, multi.Emit(context.Background(), align.Telemetry{Query: "x"}))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}
