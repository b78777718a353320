package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	id := NewEvent()
	require.True(t, strings.HasPrefix(id, PrefixEvent))

	_, err := uuid.Parse(strings.TrimPrefix(id, PrefixEvent))
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewEvent())
}

func TestNewRequest(t *testing.T) {
	id := NewRequest()
	require.True(t, strings.HasPrefix(id, PrefixRequest))

	_, err := uuid.Parse(strings.TrimPrefix(id, PrefixRequest))
	assert.NoError(t, err)
}
