package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelay_BaseAndCap(t *testing.T) {
	assert.Equal(t, 1000*time.Millisecond, Delay(0))
	assert.Equal(t, 1600*time.Millisecond, Delay(1))
	assert.Equal(t, 2560*time.Millisecond, Delay(2))
	assert.Equal(t, 15000*time.Millisecond, Delay(10))
	assert.Equal(t, 15000*time.Millisecond, Delay(MaxAttempts))
}

func TestDelay_Monotonic(t *testing.T) {
	prev := time.Duration(0)
	for n := 0; n <= MaxAttempts; n++ {
		d := Delay(n)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", n)
		assert.LessOrEqual(t, d, 15000*time.Millisecond)
		prev = d
	}
}
