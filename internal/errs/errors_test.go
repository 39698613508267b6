package errs

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "connection not found: 7", NotFound("connection", "7").Error())

	cause := errors.New("disk full")
	err := Wrap(ErrKindOperationFailed, "insert query", cause)
	assert.Equal(t, "insert query: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"not found", NotFound("query", "1"), IsNotFound},
		{"validation", Validation("name is required"), IsValidation},
		{"no active", New(ErrKindNoActiveConnection, "no active connection"), IsNoActiveConnection},
		{"empty query", New(ErrKindEmptyQuery, "query is empty"), IsEmptyQuery},
		{"operation failed", OperationFailed("list", sql.ErrConnDone), IsOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.True(t, tt.is(fmt.Errorf("outer: %w", tt.err)), "predicate must see through wrapping")
		})
	}
}

func TestOperationFailedKeepsTypedCause(t *testing.T) {
	assert.NoError(t, OperationFailed("noop", nil))

	nf := NotFound("connection", "3")
	assert.True(t, IsNotFound(OperationFailed("get", nf)))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "no_active_connection", ErrKindNoActiveConnection.String())
	assert.Equal(t, "unknown", KindOf(errors.New("plain")).String())
}
