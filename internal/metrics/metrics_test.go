package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/sudo-init-do/carhub/internal/apperr"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "invalid_state", Result(apperr.InvalidState("listing is not active")))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

func TestCountersIncrement(t *testing.T) {
	c := TransactionsTotal.WithLabelValues("reserve", "ok")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
