package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("Package doesn't exist")))
	assert.Equal(t, KindValidation, KindOf(Validation("Deal not available")))
	assert.Equal(t, KindPermissionDenied, KindOf(PermissionDenied("nope")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("context: %w", NotFound("Travel doesn't exist"))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(PermissionDenied("x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("row missing")
	err := &Error{Kind: KindNotFound, Err: cause}
	assert.Equal(t, "row missing", err.Error())
	assert.ErrorIs(t, err, cause)

	formatted := Validation("deal %d not available", 7)
	assert.Equal(t, "deal 7 not available", formatted.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
