package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveComputation(t *testing.T) {
	before := testutil.ToFloat64(computations.WithLabelValues(OutcomeWarning))

	ObserveComputation(OutcomeWarning, time.Millisecond, 2)

	assert.Equal(t, before+1, testutil.ToFloat64(computations.WithLabelValues(OutcomeWarning)))
}

func TestCountValidationFailures(t *testing.T) {
	before := testutil.ToFloat64(validationFailures.WithLabelValues("shares"))

	CountValidationFailures(map[string]string{"shares": "bad", "amount": "bad"})

	assert.Equal(t, before+1, testutil.ToFloat64(validationFailures.WithLabelValues("shares")))
}

func TestStreamGauge(t *testing.T) {
	before := testutil.ToFloat64(streamSubscribers)

	StreamOpened()
	StreamOpened()
	StreamClosed()

	assert.Equal(t, before+1, testutil.ToFloat64(streamSubscribers))
	StreamClosed()
}
