package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("create investment: %w", ErrBelowMinimum.With("minimum investment is 100"))

	assert.True(t, errors.Is(err, ErrBelowMinimum))
	assert.False(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrStore.Wrap(cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrStore))
	assert.Nil(t, ErrStore.Err, "sentinel must not be mutated")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrInvalidID:             http.StatusBadRequest,
		ErrProjectNotFound:       http.StatusNotFound,
		ErrCapacityExceeded:      http.StatusConflict,
		ErrForbidden:             http.StatusForbidden,
		ErrConcurrency:           http.StatusServiceUnavailable,
		ErrStore:                 http.StatusInternalServerError,
		errors.New("unexpected"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := ErrStore.Wrap(errors.New("dial tcp 10.0.0.3:3306: refused"))
	assert.Equal(t, "internal server error", PublicMessage(err))

	err = ErrConcurrency.Wrap(errors.New("Deadlock found"))
	assert.NotContains(t, PublicMessage(err), "Deadlock")

	assert.Equal(t, "minimum is 100", PublicMessage(ErrBelowMinimum.With("minimum is 100")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrConcurrency.Wrap(errors.New("lock wait timeout"))))
	assert.False(t, Retryable(ErrStore))
	assert.False(t, Retryable(nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "capacity_exceeded", CodeOf(fmt.Errorf("reserve: %w", ErrCapacityExceeded.With("only 5 left"))))
	assert.Equal(t, "store", CodeOf(errors.New("boom")))
	assert.Equal(t, "store", CodeOf(ErrStore.Wrap(errors.New("boom"))))
}
