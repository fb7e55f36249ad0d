package etlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_NilError(t *testing.T) {
	assert.NoError(t, Wrap(ErrWrite, nil, "pipeline: insert"))
	assert.NoError(t, Wrapf(ErrWrite, nil, "pipeline: insert %s", "places"))
}

func TestWrap_MatchesKind(t *testing.T) {
	err := Wrap(ErrConnection, errors.New("dial tcp: refused"), "db: ping")
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrConnection))
	assert.False(t, errors.Is(err, ErrWrite))
	assert.Contains(t, err.Error(), "connection error")
	assert.Contains(t, err.Error(), "db: ping")
	assert.Contains(t, err.Error(), "dial tcp: refused")
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(ErrQuery, cause, "pipeline: query %q", "SELECT 1")

	var tagged *Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, ErrQuery, tagged.Kind)
	assert.Contains(t, err.Error(), "boom")
}

func TestKindOf_ThroughFmtWrap(t *testing.T) {
	inner := New(ErrGeocodingFormat, "ais: empty features")
	outer := fmt.Errorf("transform row 2: %w", inner)

	assert.Equal(t, ErrGeocodingFormat, KindOf(outer))
	assert.Equal(t, "geocoding_format", Label(outer))
}

func TestKindOf_Untagged(t *testing.T) {
	assert.Nil(t, KindOf(errors.New("plain")))
	assert.Nil(t, KindOf(nil))
	assert.Equal(t, "unknown", Label(errors.New("plain")))
}

func TestLabel(t *testing.T) {
	tests := []struct {
		kind     error
		expected string
	}{
		{ErrConnection, "connection"},
		{ErrQuery, "query"},
		{ErrGeocodingRequest, "geocoding_request"},
		{ErrGeocodingFormat, "geocoding_format"},
		{ErrWrite, "write"},
	}

	for _, tt := range tests {
		err := Errorf(tt.kind, "failed %d", 1)
		assert.Equal(t, tt.expected, Label(err), "kind=%v", tt.kind)
	}
}
