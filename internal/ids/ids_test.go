package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortableAndValid(t *testing.T) {
	a := New()
	b := New()
	require.True(t, Valid(a))
	require.True(t, Valid(b))
	assert.Less(t, a, b)
}

func TestValidRejectsGarbage(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("loc-1"))
}
