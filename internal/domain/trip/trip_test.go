package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStarted(t *testing.T) *Trip {
	t.Helper()
	tp, err := New("trip-1", "tr-1", "rider-1", "driver-1", start)
	require.NoError(t, err)
	return tp
}

func TestFinish(t *testing.T) {
	tp := newStarted(t)
	rating := 5

	require.NoError(t, tp.Finish(start.Add(20*time.Minute), 1450, &rating))
	assert.Equal(t, StatusFinished, tp.Status)
	require.NotNil(t, tp.EndDate)
	require.NotNil(t, tp.Rating)
	assert.Equal(t, 5, *tp.Rating)
	assert.NoError(t, tp.Validate())
}

func TestFinish_RatingIsOptional(t *testing.T) {
	tp := newStarted(t)
	require.NoError(t, tp.Finish(start.Add(time.Minute), 700, nil))
	assert.Nil(t, tp.Rating)
}

func TestFinish_FromFinishedIsInvalid(t *testing.T) {
	tp := newStarted(t)
	require.NoError(t, tp.Finish(start.Add(time.Minute), 700, nil))

	err := tp.Finish(start.Add(2*time.Minute), 900, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, 700.0, tp.FareAmount)
	assert.False(t, tp.Status.CanTransitionTo(StatusStarted))
}

func TestFinish_ArgumentChecks(t *testing.T) {
	bad := 6
	tests := []struct {
		name   string
		end    time.Time
		fare   float64
		rating *int
		want   error
	}{
		{"end before start", start.Add(-time.Second), 1, nil, ErrEndBeforeStart},
		{"negative fare", start.Add(time.Second), -1, nil, ErrNegativeFare},
		{"rating out of range", start.Add(time.Second), 1, &bad, ErrRatingOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newStarted(t)
			assert.ErrorIs(t, tp.Finish(tt.end, tt.fare, tt.rating), tt.want)
			assert.Equal(t, StatusStarted, tp.Status)
		})
	}
}

func TestValidate_StartedMustNotCarryFinishFields(t *testing.T) {
	tp := newStarted(t)
	end := start.Add(time.Minute)
	tp.EndDate = &end
	assert.ErrorIs(t, tp.Validate(), ErrFinishedFieldsOnStarted)

	tp = newStarted(t)
	tp.Status = StatusFinished
	assert.ErrorIs(t, tp.Validate(), ErrEndDateRequired)
}
