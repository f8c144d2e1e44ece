package engine

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

// memStores is a single in-memory fake backing every engine store
// contract, so engine behavior is tested without postgres.
type memStores struct {
	games      map[int64]*models.Game
	players    []*models.GamePlayer
	rounds     []*models.Round
	questions  []*models.Question
	answers    []*models.Answer
	guesses    []*models.Guess
	secrets    []*models.Secret
	characters []*models.Character

	stats  map[int64]int // user id -> recorded results
	nextID int64
}

func newMemStores() *memStores {
	return &memStores{
		games:  make(map[int64]*models.Game),
		stats:  make(map[int64]int),
		nextID: 100,
	}
}

func (m *memStores) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStores) GetGameByCode(_ context.Context, roomCode string) (*models.Game, error) {
	code := store.NormalizeRoomCode(roomCode)
	for _, g := range m.games {
		if g.RoomCode == code {
			return g, nil
		}
	}
	return nil, nil
}

func (m *memStores) MarkInProgress(_ context.Context, gameID int64, startedAt time.Time) error {
	g := m.games[gameID]
	g.Status = models.GameStatusInProgress
	g.StartedAt = sql.NullTime{Time: startedAt, Valid: true}
	return nil
}

func (m *memStores) MarkCompleted(_ context.Context, gameID int64, winnerPlayerID int64, endedAt time.Time) error {
	g := m.games[gameID]
	g.Status = models.GameStatusCompleted
	g.WinnerPlayerID = sql.NullInt64{Int64: winnerPlayerID, Valid: true}
	g.EndedAt = sql.NullTime{Time: endedAt, Valid: true}
	return nil
}

func (m *memStores) GetPlayersByGameID(_ context.Context, gameID int64) ([]*models.GamePlayer, error) {
	var out []*models.GamePlayer
	for _, p := range m.players {
		if p.GameID == gameID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStores) GetPlayerByGameAndUser(_ context.Context, gameID int64, userID int64) (*models.GamePlayer, error) {
	for _, p := range m.players {
		if p.GameID == gameID && p.UserID.Valid && p.UserID.Int64 == userID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStores) AddScore(_ context.Context, playerID int64, delta int) (int, error) {
	for _, p := range m.players {
		if p.ID == playerID {
			p.Score += delta
			if p.Score < 0 {
				p.Score = 0
			}
			return p.Score, nil
		}
	}
	return 0, nil
}

func (m *memStores) SetReady(_ context.Context, playerID int64, ready bool) error {
	for _, p := range m.players {
		if p.ID == playerID {
			p.Ready = ready
		}
	}
	return nil
}

func (m *memStores) MarkLeft(_ context.Context, playerID int64, leftAt time.Time) error {
	for _, p := range m.players {
		if p.ID == playerID && !p.LeftAt.Valid {
			p.LeftAt = sql.NullTime{Time: leftAt, Valid: true}
		}
	}
	return nil
}

func (m *memStores) SetPlacement(_ context.Context, playerID int64, placement int) error {
	for _, p := range m.players {
		if p.ID == playerID {
			p.Placement = sql.NullInt64{Int64: int64(placement), Valid: true}
		}
	}
	return nil
}

func (m *memStores) CreateRound(_ context.Context, r *models.Round) (*models.Round, error) {
	round := *r
	round.ID = m.id()
	m.rounds = append(m.rounds, &round)
	return &round, nil
}

func (m *memStores) GetCurrentRound(_ context.Context, gameID int64) (*models.Round, error) {
	var current *models.Round
	for _, r := range m.rounds {
		if r.GameID == gameID && (current == nil || r.RoundNo > current.RoundNo) {
			current = r
		}
	}
	return current, nil
}

func (m *memStores) SetState(_ context.Context, roundID int64, state string, activePlayerID int64) error {
	for _, r := range m.rounds {
		if r.ID == roundID {
			r.State = state
			r.ActivePlayerID = activePlayerID
		}
	}
	return nil
}

func (m *memStores) CloseRound(_ context.Context, roundID int64, endedAt time.Time, durationMs int64) error {
	for _, r := range m.rounds {
		if r.ID == roundID {
			r.State = models.RoundStateClosed
			r.EndedAt = sql.NullTime{Time: endedAt, Valid: true}
			r.DurationMs = sql.NullInt64{Int64: durationMs, Valid: true}
		}
	}
	return nil
}

func (m *memStores) CreateQuestion(_ context.Context, q *models.Question) (*models.Question, error) {
	question := *q
	question.ID = m.id()
	m.questions = append(m.questions, &question)
	return &question, nil
}

func (m *memStores) GetQuestionByID(_ context.Context, questionID int64) (*models.Question, error) {
	for _, q := range m.questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return nil, nil
}

func (m *memStores) GetQuestionsByGameID(_ context.Context, gameID int64) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.questions {
		if q.GameID == gameID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memStores) CreateAnswer(_ context.Context, a *models.Answer) (*models.Answer, error) {
	for _, existing := range m.answers {
		if existing.QuestionID == a.QuestionID {
			return nil, store.ErrQuestionAlreadyAnswered
		}
	}
	answer := *a
	answer.ID = m.id()
	m.answers = append(m.answers, &answer)
	return &answer, nil
}

func (m *memStores) GetAnswerByQuestionID(_ context.Context, questionID int64) (*models.Answer, error) {
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memStores) GetAnswersByGameID(_ context.Context, gameID int64) ([]*models.Answer, error) {
	var out []*models.Answer
	for _, a := range m.answers {
		for _, q := range m.questions {
			if q.ID == a.QuestionID && q.GameID == gameID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (m *memStores) CreateGuess(_ context.Context, g *models.Guess) (*models.Guess, error) {
	guess := *g
	guess.ID = m.id()
	m.guesses = append(m.guesses, &guess)
	return &guess, nil
}

func (m *memStores) CountByPlayer(_ context.Context, gameID int64, playerID int64) (int, error) {
	count := 0
	for _, g := range m.guesses {
		if g.GameID == gameID && g.GuesserPlayerID == playerID {
			count++
		}
	}
	return count, nil
}

func (m *memStores) CreateSecret(_ context.Context, s *models.Secret) (*models.Secret, error) {
	secret := *s
	secret.ID = m.id()
	secret.State = models.SecretHidden
	m.secrets = append(m.secrets, &secret)
	return &secret, nil
}

func (m *memStores) GetByPlayer(_ context.Context, gameID int64, playerID int64) (*models.Secret, error) {
	for _, s := range m.secrets {
		if s.GameID == gameID && s.PlayerID == playerID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memStores) GetSecretsByGameID(_ context.Context, gameID int64) ([]*models.Secret, error) {
	var out []*models.Secret
	for _, s := range m.secrets {
		if s.GameID == gameID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStores) Reveal(_ context.Context, secretID int64, revealedAt time.Time) error {
	for _, s := range m.secrets {
		if s.ID == secretID && s.State == models.SecretHidden {
			s.State = models.SecretRevealed
			s.RevealedAt = sql.NullTime{Time: revealedAt, Valid: true}
		}
	}
	return nil
}

func (m *memStores) GetActiveCharacters(_ context.Context) ([]*models.Character, error) {
	var out []*models.Character
	for _, c := range m.characters {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStores) GetCharacterByID(_ context.Context, characterID int64) (*models.Character, error) {
	for _, c := range m.characters {
		if c.ID == characterID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStores) RecordResult(_ context.Context, userID int64, score int, won bool) error {
	m.stats[userID]++
	return nil
}

const (
	testRoom = "ABC12"
	userA    = int64(1)
	userB    = int64(2)
)

// newTestEngine seats alice (user 1) and bob (user 2) in a ready lobby
// with five characters; the identity shuffle makes assignments
// deterministic: alice gets character 1 ("Alice"), bob character 2 ("Bob").
func newTestEngine(t *testing.T) (*Engine, *memStores) {
	t.Helper()

	m := newMemStores()
	game := &models.Game{ID: 1, RoomCode: testRoom, Status: models.GameStatusLobby, CreatedAt: time.Now()}
	m.games[game.ID] = game

	m.players = []*models.GamePlayer{
		{ID: 10, GameID: 1, UserID: sql.NullInt64{Int64: userA, Valid: true}, Username: "alice", Ready: true},
		{ID: 11, GameID: 1, UserID: sql.NullInt64{Int64: userB, Valid: true}, Username: "bob", Ready: true},
	}

	names := []string{"Alice", "Bob", "Carol", "Dave", "Erin"}
	for i, name := range names {
		m.characters = append(m.characters, &models.Character{ID: int64(i + 1), Name: name, Active: true})
	}

	e := New(Deps{
		Games: m, Players: m, Rounds: m, Questions: m,
		Answers: m, Guesses: m, Secrets: m, Characters: m, Stats: m,
	})
	e.shuffle = func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return e, m
}

func startedEngine(t *testing.T) (*Engine, *memStores) {
	t.Helper()
	e, m := newTestEngine(t)
	_, err := e.StartGame(context.Background(), testRoom, userA)
	require.NoError(t, err)
	return e, m
}

func playerByID(m *memStores, id int64) *models.GamePlayer {
	for _, p := range m.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func TestStartGame(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()

	res, err := e.StartGame(ctx, testRoom, userA)
	require.NoError(t, err)

	assert.Equal(t, models.GameStatusInProgress, res.Game.Status)
	require.NotNil(t, res.Round)
	assert.Equal(t, 1, res.Round.RoundNo)
	assert.Equal(t, models.RoundStateAwaitingQuestion, res.Round.State)
	assert.Equal(t, int64(10), res.Round.ActivePlayerID, "first seat opens the game")

	require.Len(t, res.Assignments, 2)
	assert.Equal(t, "Alice", res.Assignments[0].Character.Name)
	assert.Equal(t, "Bob", res.Assignments[1].Character.Name)
	assert.NotEqual(t, res.Assignments[0].Character.ID, res.Assignments[1].Character.ID)
	assert.Len(t, m.secrets, 2)

	// a second start is rejected
	_, err = e.StartGame(ctx, testRoom, userA)
	require.Error(t, err)
	assert.True(t, IsReject(err))
}

func TestStartGameRequiresReadyFullLobby(t *testing.T) {
	ctx := context.Background()

	e, m := newTestEngine(t)
	m.players[1].Ready = false
	_, err := e.StartGame(ctx, testRoom, userA)
	require.Error(t, err)
	assert.True(t, IsReject(err))

	e, m = newTestEngine(t)
	m.players = m.players[:1]
	_, err = e.StartGame(ctx, testRoom, userA)
	require.Error(t, err)
	assert.True(t, IsReject(err))

	// fewer characters than players
	e, m = newTestEngine(t)
	m.characters = m.characters[:1]
	_, err = e.StartGame(ctx, testRoom, userA)
	require.Error(t, err)
	assert.True(t, IsReject(err))
}

func TestTurnHandoffOnAsk(t *testing.T) {
	e, m := startedEngine(t)
	ctx := context.Background()

	res, err := e.AskQuestion(ctx, testRoom, userA, 11, "Does your character wear glasses?")
	require.NoError(t, err)

	assert.Equal(t, models.RoundStateAwaitingAnswer, res.Round.State)
	assert.Equal(t, int64(11), res.Round.ActivePlayerID, "asking hands the turn to the target")
	assert.Equal(t, ScoreAsk, playerByID(m, 10).Score)

	// asker cannot ask again out of turn
	_, err = e.AskQuestion(ctx, testRoom, userA, 11, "Another?")
	require.Error(t, err)
	assert.True(t, IsReject(err))
}

func TestNoTurnHandoffOnAnswer(t *testing.T) {
	e, m := startedEngine(t)
	ctx := context.Background()

	ask, err := e.AskQuestion(ctx, testRoom, userA, 11, "Does your character wear glasses?")
	require.NoError(t, err)

	res, err := e.SubmitAnswer(ctx, testRoom, userB, ask.Question.ID, models.AnswerYes, "")
	require.NoError(t, err)

	assert.Equal(t, models.RoundStateAwaitingQuestion, res.Round.State)
	assert.Equal(t, int64(11), res.Round.ActivePlayerID, "answering does not change turns")
	assert.Equal(t, 2, res.Round.RoundNo, "answer closes the cycle and opens the next round")
	assert.Equal(t, ScoreAnswer, playerByID(m, 11).Score)

	prev := m.rounds[0]
	assert.Equal(t, models.RoundStateClosed, prev.State)
	assert.True(t, prev.EndedAt.Valid)
}

func TestAnswerRestrictions(t *testing.T) {
	ctx := context.Background()

	// targeted question: only the target may answer
	e, _ := startedEngine(t)
	ask, err := e.AskQuestion(ctx, testRoom, userA, 11, "Blond hair?")
	require.NoError(t, err)
	_, err = e.SubmitAnswer(ctx, testRoom, userA, ask.Question.ID, models.AnswerNo, "")
	require.Error(t, err)
	assert.True(t, IsReject(err))

	// open question: anyone except the asker
	e, _ = startedEngine(t)
	ask, err = e.AskQuestion(ctx, testRoom, userA, 0, "Anyone wearing a hat?")
	require.NoError(t, err)
	_, err = e.SubmitAnswer(ctx, testRoom, userA, ask.Question.ID, models.AnswerNo, "")
	require.Error(t, err)
	assert.True(t, IsReject(err))
	_, err = e.SubmitAnswer(ctx, testRoom, userB, ask.Question.ID, models.AnswerNo, "")
	require.NoError(t, err)
}

func TestAnswerExclusivity(t *testing.T) {
	e, m := startedEngine(t)
	ctx := context.Background()

	ask, err := e.AskQuestion(ctx, testRoom, userA, 11, "Does your character wear glasses?")
	require.NoError(t, err)
	_, err = e.SubmitAnswer(ctx, testRoom, userB, ask.Question.ID, models.AnswerYes, "")
	require.NoError(t, err)

	// move the game into the next awaiting-answer state, then try to
	// answer the first question again
	ask2, err := e.AskQuestion(ctx, testRoom, userB, 10, "Is it a woman?")
	require.NoError(t, err)
	_, err = e.SubmitAnswer(ctx, testRoom, userA, ask.Question.ID, models.AnswerNo, "")
	require.Error(t, err)
	assert.True(t, IsReject(err))
	assert.Len(t, m.answers, 1, "no second answer record is created")

	_, err = e.SubmitAnswer(ctx, testRoom, userA, ask2.Question.ID, models.AnswerNo, "")
	require.NoError(t, err)
}

func TestGuessOutcomeAndHandoff(t *testing.T) {
	ctx := context.Background()

	t.Run("correct", func(t *testing.T) {
		e, m := startedEngine(t)

		// bob holds character 2 ("Bob")
		out, err := e.SubmitGuess(ctx, testRoom, userA, 11, 2)
		require.NoError(t, err)

		assert.True(t, out.IsCorrect)
		assert.Equal(t, ScoreCorrectGuess, out.GuesserScore)
		assert.Equal(t, int64(11), out.ActivePlayerID, "turn passes even on a correct guess")

		// revealing the second-to-last hidden secret ends the game
		require.NotNil(t, out.GameOver)
		assert.Equal(t, int64(10), out.GameOver.WinnerPlayerID)
		assert.Equal(t, models.GameStatusCompleted, m.games[1].Status)
		assert.Equal(t, 2, len(m.stats), "stats recorded for both users")
	})

	t.Run("wrong", func(t *testing.T) {
		e, m := startedEngine(t)

		out, err := e.SubmitGuess(ctx, testRoom, userA, 11, 3)
		require.NoError(t, err)

		assert.False(t, out.IsCorrect)
		assert.Equal(t, 0, out.GuesserScore, "penalty floors at zero")
		assert.Equal(t, int64(11), out.ActivePlayerID)
		assert.Nil(t, out.GameOver)
		assert.Equal(t, models.GameStatusInProgress, m.games[1].Status)
	})
}

func TestScoreFloor(t *testing.T) {
	e, m := startedEngine(t)
	ctx := context.Background()

	playerByID(m, 10).Score = 50
	out, err := e.SubmitGuess(ctx, testRoom, userA, 11, 3)
	require.NoError(t, err)

	assert.False(t, out.IsCorrect)
	assert.Equal(t, 0, out.GuesserScore)
	assert.Equal(t, 0, playerByID(m, 10).Score)
}

func TestGuessRules(t *testing.T) {
	ctx := context.Background()

	// guessing one's own character is rejected
	e, _ := startedEngine(t)
	_, err := e.SubmitGuess(ctx, testRoom, userA, 10, 1)
	require.Error(t, err)
	assert.True(t, IsReject(err))

	// only the active player may guess
	_, err = e.SubmitGuess(ctx, testRoom, userB, 10, 1)
	require.Error(t, err)
	assert.True(t, IsReject(err))

	// nonexistent character
	_, err = e.SubmitGuess(ctx, testRoom, userA, 11, 999)
	require.Error(t, err)
	assert.True(t, IsReject(err))
}

func TestGuessLimitPerGame(t *testing.T) {
	e, m := startedEngine(t)
	ctx := context.Background()

	// alternate wrong guesses so alice burns her three across rounds
	wrongForA := int64(3)
	for i := 0; i < MaxGuessesPerGame; i++ {
		out, err := e.SubmitGuess(ctx, testRoom, userA, 11, wrongForA)
		require.NoError(t, err)
		require.False(t, out.IsCorrect)

		// give the turn back to alice
		out, err = e.SubmitGuess(ctx, testRoom, userB, 10, 4)
		require.NoError(t, err)
		require.False(t, out.IsCorrect)
	}

	_, err := e.SubmitGuess(ctx, testRoom, userA, 11, wrongForA)
	require.Error(t, err)
	assert.True(t, IsReject(err))
	assert.Equal(t, MaxGuessesPerGame*2, len(m.guesses))
}

func TestNextActivePlayerSkipsLeftSeats(t *testing.T) {
	players := []*models.GamePlayer{
		{ID: 1},
		{ID: 2, LeftAt: sql.NullTime{Time: time.Now(), Valid: true}},
		{ID: 3},
	}

	next, err := nextActivePlayer(players, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), next.ID, "left seats stay in the walk but are skipped")

	next, err = nextActivePlayer(players, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next.ID, "the walk wraps around")

	players[0].LeftAt = sql.NullTime{Time: time.Now(), Valid: true}
	players[2].LeftAt = sql.NullTime{Time: time.Now(), Valid: true}
	_, err = nextActivePlayer(players, 1)
	require.Error(t, err)
	assert.True(t, IsInternal(err))
}

func TestPlacementsDenseRanking(t *testing.T) {
	players := []*models.GamePlayer{
		{ID: 1, Score: 1000},
		{ID: 2, Score: 500},
		{ID: 3, Score: 500},
		{ID: 4, Score: 250},
	}

	ranked := computePlacements(players)

	got := make([]int64, len(ranked))
	for i, p := range ranked {
		got[i] = p.Placement.Int64
	}
	assert.Equal(t, []int64{1, 2, 2, 3}, got)
}

func TestRoomCodeNormalizedLookups(t *testing.T) {
	e, _ := startedEngine(t)
	ctx := context.Background()

	for _, code := range []string{" abc12 ", "ABC12", "abc12"} {
		lobby, err := e.Lobby(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, testRoom, lobby.Game.RoomCode)
	}
}

func TestLeaveEndsDesertedGame(t *testing.T) {
	e, m := startedEngine(t)
	ctx := context.Background()

	_, over, err := e.LeaveGame(ctx, testRoom, 10) // alice held the turn
	require.NoError(t, err)
	assert.True(t, playerByID(m, 10).LeftAt.Valid)

	// the pointer moved on before the game closed
	round, err := m.GetCurrentRound(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), round.ActivePlayerID)
	assert.Equal(t, models.RoundStateClosed, round.State)

	// bob is the last active hidden-secret holder, so the game is over
	require.NotNil(t, over)
	assert.Equal(t, int64(11), over.WinnerPlayerID)
	assert.Equal(t, models.GameStatusCompleted, m.games[1].Status)
	assert.True(t, playerByID(m, 11).Placement.Valid)

	// nothing is left for the remaining player to do
	_, err = e.SubmitGuess(ctx, testRoom, userB, 10, 1)
	require.Error(t, err)
	assert.True(t, IsReject(err))
}

func TestLeaveLobbyDoesNotCompleteGame(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()

	lobby, over, err := e.LeaveGame(ctx, testRoom, 10)
	require.NoError(t, err)

	assert.Nil(t, over)
	assert.Equal(t, models.GameStatusLobby, m.games[1].Status)
	assert.True(t, playerByID(m, 10).LeftAt.Valid)
	assert.Len(t, lobby.Players, 2)
}
