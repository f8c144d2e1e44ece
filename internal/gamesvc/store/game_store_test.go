package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoomCode(t *testing.T) {
	cases := map[string]string{
		"abc12":     "ABC12",
		" ABC12 ":   "ABC12",
		"\tqx9zk\n": "QX9ZK",
		"ABC12":     "ABC12",
		"":          "",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeRoomCode(in))
	}

	// normalization is idempotent
	assert.Equal(t, NormalizeRoomCode("abc12"), NormalizeRoomCode(NormalizeRoomCode("abc12")))
}
