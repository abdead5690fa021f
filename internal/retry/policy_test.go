package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, BackoffLinear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(BackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial, "initial > max should clamp to max")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, BackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(BackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, 100*time.Millisecond, fixed.Delay(i), "fixed attempt %d", i)
	}

	linear := NewPolicy(BackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	// attempts: 1->100ms,2->200ms,3->cap 250ms,4->cap 250ms
	cases := []struct {
		attempt int
		want    time.Duration
	}{{1, 100 * time.Millisecond}, {2, 200 * time.Millisecond}, {3, 250 * time.Millisecond}, {4, 250 * time.Millisecond}}
	for _, c := range cases {
		assert.Equal(t, c.want, linear.Delay(c.attempt), "linear attempt %d", c.attempt)
	}

	exp := NewPolicy(BackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	// 1->50,2->100,3->160 (cap),4->160
	expCases := []struct {
		attempt int
		want    time.Duration
	}{{1, 50 * time.Millisecond}, {2, 100 * time.Millisecond}, {3, 160 * time.Millisecond}, {4, 160 * time.Millisecond}}
	for _, c := range expCases {
		assert.Equal(t, c.want, exp.Delay(c.attempt), "exp attempt %d", c.attempt)
	}
}

// TestDelayEdgeCases ensures non-positive attempts yield zero and negative attempts don't panic.
func TestDelayEdgeCases(t *testing.T) {
	p := NewPolicy(BackoffLinear, 10*time.Millisecond, 20*time.Millisecond, 1)
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Duration(0), p.Delay(-1))
}

// TestValidate covers validation error paths.
func TestValidate(t *testing.T) {
	badInitial := Policy{Mode: BackoffLinear, Initial: 0, Max: time.Second, MaxRetries: 1}
	assert.Error(t, badInitial.Validate(), "expected error for zero initial")

	badMax := Policy{Mode: BackoffLinear, Initial: time.Second, Max: 0, MaxRetries: 1}
	assert.Error(t, badMax.Validate(), "expected error for zero max")

	badRetries := Policy{Mode: BackoffLinear, Initial: time.Second, Max: 2 * time.Second, MaxRetries: -1}
	assert.Error(t, badRetries.Validate(), "expected error for negative retries")

	good := Policy{Mode: BackoffLinear, Initial: time.Second, Max: 2 * time.Second, MaxRetries: 0}
	assert.NoError(t, good.Validate())
}

// TestUnknownModeFallsBack leaves mode default when unknown string supplied.
func TestUnknownModeFallsBack(t *testing.T) {
	p := NewPolicy("weird", 250*time.Millisecond, 500*time.Millisecond, 1)
	assert.Equal(t, BackoffLinear, p.Mode, "unknown mode should fall back to linear")
}

// TestNormalizeBackoffMode covers the config-string normalization helper.
func TestNormalizeBackoffMode(t *testing.T) {
	assert.Equal(t, BackoffExponential, NormalizeBackoffMode("exponential"))
	assert.Equal(t, BackoffLinear, NormalizeBackoffMode(""), "expected empty string to fall back to linear")
	assert.Equal(t, BackoffLinear, NormalizeBackoffMode("bogus"), "expected unknown string to fall back to linear")
}
