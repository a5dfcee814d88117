package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLLimit(t *testing.T) {
	assert.Nil(t, sqlLimit(0))
	assert.Nil(t, sqlLimit(-3))

	l := sqlLimit(200)
	require.NotNil(t, l)
	assert.Equal(t, 200, *l)
}
