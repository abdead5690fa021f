package errors

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: 0,
		},
		{
			name: "classified validation error",
			err: NewError(CategoryValidation, "invalid input").
				WithSeverity(SeverityError).
				Build(),
			expected: 1,
		},
		{
			name: "classified scheduler skip",
			err: NewError(CategoryScheduler, "budget exhausted").
				WithSeverity(SeverityWarning).
				Build(),
			expected: 2,
		},
		{
			name: "classified auth error",
			err: NewError(CategoryAuth, "unauthorized").
				WithSeverity(SeverityError).
				Build(),
			expected: 1,
		},
		{
			name:     "unclassified error",
			err:      &customError{msg: "unknown error"},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "nil error",
			err:      nil,
			contains: "",
		},
		{
			name: "classified error in non-verbose mode",
			err: NewError(CategoryInternal, "internal issue").
				WithSeverity(SeverityError).
				Build(),
			contains: "Internal error occurred (use -v for details)",
		},
		{
			name:     "unclassified error",
			err:      &customError{msg: "unknown error"},
			contains: "Error: unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.FormatError(tt.err)
			if tt.contains == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.contains)
		})
	}
}

// customError is a test helper for unclassified errors.
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
