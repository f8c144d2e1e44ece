package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomRoomCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := randomRoomCode()
		assert.Len(t, code, roomCodeLength)

		for _, c := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, c), "unexpected character %q in %s", c, code)
		}

		// lookalike characters never appear
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
	}
}
