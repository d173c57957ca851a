package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrNotFound, "complaint not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "complaint not found", err.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(Clone(ErrNotFound, "gone")))
	assert.Equal(t, KindAuthorization, KindOf(ErrForbidden))
	assert.Equal(t, KindBackend, KindOf(ErrRecordExists))
	assert.Equal(t, KindBackend, KindOf(fmt.Errorf("network down")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestRecordExistsIsItsOwnConflict(t *testing.T) {
	err := Clone(ErrRecordExists, "")
	assert.Equal(t, "RECORD_EXISTS", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "record already exists", err.Message)
	assert.True(t, errors.Is(err, ErrRecordExists))
	assert.False(t, errors.Is(err, ErrConflict))
}
