package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{InvalidTransition("x"), http.StatusUnprocessableEntity},
		{OrderNotEditable("x"), http.StatusUnprocessableEntity},
		{EquipmentConflict("x"), http.StatusConflict},
		{DuplicateTip(), http.StatusConflict},
		{RefundExceedsPaid("x"), http.StatusPaymentRequired},
		{Gateway(errors.New("boom")), http.StatusBadGateway},
		{Unauthorized("x"), http.StatusUnauthorized},
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{New(CodeInternal, "x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.err.Code), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.HTTPStatus())
		})
	}
}

func TestIsFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("transition: %w", InvalidTransition("nope"))
	assert.True(t, Is(err, CodeInvalidTransition))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeInternal))
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	plain := errors.New("disk on fire")
	got := From(plain)
	assert.Equal(t, CodeInternal, got.Code)
	assert.ErrorIs(t, got, plain)

	known := NotFound("order not found")
	assert.Same(t, known, From(known))
	assert.Nil(t, From(nil))
}
