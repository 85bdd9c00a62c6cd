package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrTypeIndex, "index not found")
	assert.Equal(t, "index: index not found", err.Error())

	wrapped := Wrap(stderrors.New("no such file"), ErrTypeIndex, "failed to open index")
	assert.Equal(t, "index: failed to open index (caused by: no such file)", wrapped.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrapf(cause, ErrTypeCatalog, "fetch failed for %s", "urn:orders")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "urn:orders")
}

func TestIsType(t *testing.T) {
	err := New(ErrTypeRetrieval, "search failed")

	assert.True(t, IsType(err, ErrTypeRetrieval))
	assert.False(t, IsType(err, ErrTypeConfig))
	assert.False(t, IsType(stderrors.New("plain"), ErrTypeRetrieval))
	assert.False(t, IsType(nil, ErrTypeRetrieval))
}

func TestIsTypeThroughWrapping(t *testing.T) {
	inner := New(ErrTypeConfig, "missing API key")
	outer := fmt.Errorf("building client: %w", inner)

	assert.True(t, IsType(outer, ErrTypeConfig))
	assert.Equal(t, ErrTypeConfig, GetType(outer))
}

func TestGetTypeFallsBackToInternal(t *testing.T) {
	assert.Equal(t, ErrTypeInternal, GetType(stderrors.New("plain")))
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "bad setup").
		WithSuggestion("check the config file").
		WithSuggestion("run with --help")

	require.Len(t, err.Suggestions, 2)
	assert.Equal(t, "check the config file", err.Suggestions[0])
}

func TestNewConfigErrorIncludesField(t *testing.T) {
	err := NewConfigError("value is required", "catalog.server_url")

	assert.Contains(t, err.Message, "catalog.server_url")
	assert.True(t, IsType(err, ErrTypeConfig))
	require.NotEmpty(t, err.Suggestions)
	assert.Contains(t, err.Suggestions[0], "queryscout")
}
