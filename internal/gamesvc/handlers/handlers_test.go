package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avvvet/guesswho-services/internal/gamesvc/engine"
)

func TestRejectStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, rejectStatus(engine.CodeGameNotFound))
	assert.Equal(t, http.StatusNotFound, rejectStatus(engine.CodeTargetNotFound))
	assert.Equal(t, http.StatusForbidden, rejectStatus(engine.CodeNotYourTurn))
	assert.Equal(t, http.StatusForbidden, rejectStatus(engine.CodeSelfGuess))
	assert.Equal(t, http.StatusConflict, rejectStatus(engine.CodeAlreadyAnswered))
	assert.Equal(t, http.StatusConflict, rejectStatus(engine.CodeGuessLimit))
	assert.Equal(t, http.StatusBadRequest, rejectStatus(engine.CodeBadValue))
	assert.Equal(t, http.StatusBadRequest, rejectStatus("unknown_code"))
}
