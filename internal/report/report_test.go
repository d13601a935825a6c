package report

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	name string
	err  error
	got  []Estimate
}

func (r *recordingReporter) Name() string { return r.name }

func (r *recordingReporter) Report(_ context.Context, est Estimate) error {
	r.got = append(r.got, est)
	return r.err
}

func TestEstimate_AbsError(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0051, Estimate{Value: math.Pi + 0.0051}.AbsError(), 1e-12)
	assert.InDelta(t, 0.0051, Estimate{Value: math.Pi - 0.0051}.AbsError(), 1e-12)
}

func TestMulti_ReportsToEverySinkDespiteFailures(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	first := &recordingReporter{name: "first", err: errors.New("broker down")}
	second := &recordingReporter{name: "second"}
	est := Estimate{Value: 3.14, Workers: 2, Samples: 10}

	// --- Act ---
	err := Multi{first, second}.Report(context.Background(), est)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), `reporter "first": broker down`)
	assert.Equal(t, []Estimate{est}, first.got)
	assert.Equal(t, []Estimate{est}, second.got, "a failing reporter must not starve later ones")
}

func TestMulti_Empty(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Multi(nil).Report(context.Background(), Estimate{}))
}
