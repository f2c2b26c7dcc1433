package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorNilStaysNil(t *testing.T) {
	err := MapError(nil)
	// A typed-nil *DomainError boxed into the interface would make this
	// check fail even though the pointer inside is nil.
	assert.NoError(t, err)
	assert.Nil(t, err)
}

func TestMapErrorPassesDomainErrorsThrough(t *testing.T) {
	original := NewConflict("busy", nil)
	mapped := MapError(original)
	require.Error(t, mapped)
	assert.True(t, IsCode(mapped, "CONFLICT"))
}

func TestMapErrorWrapsUnknownErrors(t *testing.T) {
	mapped := MapError(errors.New("boom"))
	require.Error(t, mapped)
	assert.True(t, IsCode(mapped, "INTERNAL_ERROR"))
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	domainErr := ToDomainError(pgx.ErrNoRows)
	require.NotNil(t, domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
