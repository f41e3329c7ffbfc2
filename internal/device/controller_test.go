package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_BackoffFor(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 250*time.Millisecond, p.backoffFor(1))
	assert.Equal(t, 500*time.Millisecond, p.backoffFor(2))
	assert.Equal(t, 1*time.Second, p.backoffFor(3))
	assert.Equal(t, 2*time.Second, p.backoffFor(4))
	// capped at 2s per spec.md §4.4.1 regardless of further doubling.
	assert.Equal(t, 2*time.Second, p.backoffFor(10))
}
