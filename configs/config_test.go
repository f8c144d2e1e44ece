package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUniqueInstance(t *testing.T) {
	id := CreateUniqueInstance("game")
	require.NotEmpty(t, id)
	assert.Equal(t, id, GetInstanceId())

	// every instance gets a fresh identifier
	assert.NotEqual(t, id, CreateUniqueInstance("game"))
}
