package engine

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

// Scoring and limits. Tunable, not structural.
const (
	ScoreAsk          = 10
	ScoreAnswer       = 5
	ScoreCorrectGuess = 1000
	PenaltyWrongGuess = -100
	MaxGuessesPerGame = 3
	PlayersPerGame    = 2
)

type Deps struct {
	Games      GameStore
	Players    PlayerStore
	Rounds     RoundStore
	Questions  QuestionStore
	Answers    AnswerStore
	Guesses    GuessStore
	Secrets    SecretStore
	Characters CharacterStore
	Stats      StatsRecorder // optional
}

// Engine is the authoritative turn state machine. Every gameplay
// action takes the room's lock for its whole read-mutate-persist
// sequence, so actions on one room are strictly serialized.
type Engine struct {
	deps  Deps
	locks *roomLocks

	now     func() time.Time
	shuffle func(n int) []int
}

func New(deps Deps) *Engine {
	return &Engine{
		deps:    deps,
		locks:   newRoomLocks(),
		now:     time.Now,
		shuffle: rand.Perm,
	}
}

type Lobby struct {
	Game    *models.Game
	Players []*models.GamePlayer
}

type Assignment struct {
	Player    *models.GamePlayer
	Character *models.Character
}

type StartResult struct {
	Game        *models.Game
	Players     []*models.GamePlayer
	Round       *models.Round
	Assignments []Assignment // delivered privately, never broadcast
}

type AskResult struct {
	Question *models.Question
	Round    *models.Round
}

type AnswerResult struct {
	Answer *models.Answer
	Round  *models.Round // the freshly opened round
}

type GameOver struct {
	Game           *models.Game
	WinnerPlayerID int64
	Placements     []*models.GamePlayer
}

type GuessOutcome struct {
	Guess          *models.Guess
	IsCorrect      bool
	GuesserScore   int
	ActivePlayerID int64
	GameOver       *GameOver // nil while the game continues
}

type GameState struct {
	Game    *models.Game
	Players []*models.GamePlayer
	Round   *models.Round
}

// Lobby returns the game and its seats for a room code.
func (e *Engine) Lobby(ctx context.Context, roomCode string) (*Lobby, error) {
	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	return &Lobby{Game: game, Players: players}, nil
}

// SetReady flips the caller's ready flag while the game is in the lobby.
func (e *Engine) SetReady(ctx context.Context, roomCode string, userID int64, ready bool) (*Lobby, error) {
	unlock := e.locks.lock(store.NormalizeRoomCode(roomCode))
	defer unlock()

	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusLobby {
		return nil, reject(CodeWrongStatus, "game already started")
	}

	seat, err := e.seatOf(ctx, game, userID)
	if err != nil {
		return nil, err
	}

	if err := e.deps.Players.SetReady(ctx, seat.ID, ready); err != nil {
		return nil, err
	}

	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	return &Lobby{Game: game, Players: players}, nil
}

// StartGame moves a full, all-ready lobby into play: round 1 with the
// first seat active and one uniformly random secret character per
// player drawn from the active character set.
func (e *Engine) StartGame(ctx context.Context, roomCode string, userID int64) (*StartResult, error) {
	unlock := e.locks.lock(store.NormalizeRoomCode(roomCode))
	defer unlock()

	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusLobby {
		return nil, reject(CodeWrongStatus, "game already started")
	}

	if _, err := e.seatOf(ctx, game, userID); err != nil {
		return nil, err
	}

	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if len(players) != PlayersPerGame {
		return nil, reject(CodeLobbySize, "game needs exactly %d players", PlayersPerGame)
	}
	for _, p := range players {
		if !p.Ready {
			return nil, reject(CodeNotReady, "player %s is not ready", p.Username)
		}
	}

	characters, err := e.deps.Characters.GetActiveCharacters(ctx)
	if err != nil {
		return nil, err
	}
	if len(characters) < len(players) {
		return nil, reject(CodeNoCharacters, "not enough characters to start a game")
	}

	now := e.now()
	if err := e.deps.Games.MarkInProgress(ctx, game.ID, now); err != nil {
		return nil, err
	}
	game.Status = models.GameStatusInProgress
	game.StartedAt.Time, game.StartedAt.Valid = now, true

	round, err := e.deps.Rounds.CreateRound(ctx, &models.Round{
		GameID:         game.ID,
		RoundNo:        1,
		ActivePlayerID: players[0].ID,
		State:          models.RoundStateAwaitingQuestion,
		StartedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	perm := e.shuffle(len(characters))
	assignments := make([]Assignment, 0, len(players))
	for i, p := range players {
		character := characters[perm[i]]
		if _, err := e.deps.Secrets.CreateSecret(ctx, &models.Secret{
			GameID:      game.ID,
			PlayerID:    p.ID,
			CharacterID: character.ID,
			AssignedAt:  now,
		}); err != nil {
			return nil, err
		}
		assignments = append(assignments, Assignment{Player: p, Character: character})
	}

	return &StartResult{Game: game, Players: players, Round: round, Assignments: assignments}, nil
}

// AskQuestion hands the turn to the answerer: the active-player pointer
// advances at ask time, and the round moves to awaiting_answer.
func (e *Engine) AskQuestion(ctx context.Context, roomCode string, userID int64, targetPlayerID int64, text string) (*AskResult, error) {
	unlock := e.locks.lock(store.NormalizeRoomCode(roomCode))
	defer unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, reject(CodeBadValue, "question text cannot be empty")
	}

	game, players, round, caller, err := e.loadTurnContext(ctx, roomCode, userID)
	if err != nil {
		return nil, err
	}
	if round.State != models.RoundStateAwaitingQuestion {
		return nil, reject(CodeWrongState, "a question is already waiting for an answer")
	}
	if round.ActivePlayerID != caller.ID {
		return nil, reject(CodeNotYourTurn, "it is not your turn to ask")
	}

	question := &models.Question{
		GameID:        game.ID,
		RoundID:       round.ID,
		AskerPlayerID: caller.ID,
		Text:          text,
	}
	if targetPlayerID != 0 {
		target := findPlayer(players, targetPlayerID)
		if target == nil || !target.Active() {
			return nil, reject(CodeTargetNotFound, "target player not found")
		}
		if target.ID == caller.ID {
			return nil, reject(CodeBadValue, "cannot target your own question")
		}
		question.TargetPlayerID.Int64, question.TargetPlayerID.Valid = target.ID, true
	}

	question, err = e.deps.Questions.CreateQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	if _, err := e.deps.Players.AddScore(ctx, caller.ID, ScoreAsk); err != nil {
		return nil, err
	}

	next, err := nextActivePlayer(players, caller.ID)
	if err != nil {
		return nil, err
	}

	if err := e.deps.Rounds.SetState(ctx, round.ID, models.RoundStateAwaitingAnswer, next.ID); err != nil {
		return nil, err
	}
	round.State = models.RoundStateAwaitingAnswer
	round.ActivePlayerID = next.ID

	return &AskResult{Question: question, Round: round}, nil
}

// SubmitAnswer resolves the pending question without moving the
// active-player pointer, closes the round and opens the next one.
func (e *Engine) SubmitAnswer(ctx context.Context, roomCode string, userID int64, questionID int64, value string, note string) (*AnswerResult, error) {
	unlock := e.locks.lock(store.NormalizeRoomCode(roomCode))
	defer unlock()

	switch value {
	case models.AnswerYes, models.AnswerNo, models.AnswerUnsure:
	default:
		return nil, reject(CodeBadValue, "answer value must be yes, no or unsure")
	}

	game, _, round, responder, err := e.loadTurnContext(ctx, roomCode, userID)
	if err != nil {
		return nil, err
	}
	if round.State != models.RoundStateAwaitingAnswer {
		return nil, reject(CodeWrongState, "no question is waiting for an answer")
	}

	question, err := e.deps.Questions.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil || question.GameID != game.ID {
		return nil, reject(CodeTargetNotFound, "question not found")
	}
	if question.RoundID != round.ID {
		return nil, reject(CodeAlreadyAnswered, "question already answered")
	}

	if question.TargetPlayerID.Valid {
		if responder.ID != question.TargetPlayerID.Int64 {
			return nil, reject(CodeNotYourQuestion, "only the targeted player may answer")
		}
	} else if responder.ID == question.AskerPlayerID {
		return nil, reject(CodeNotYourQuestion, "the asker cannot answer their own question")
	}

	if existing, err := e.deps.Answers.GetAnswerByQuestionID(ctx, questionID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, reject(CodeAlreadyAnswered, "question already answered")
	}

	answer, err := e.deps.Answers.CreateAnswer(ctx, &models.Answer{
		QuestionID:        questionID,
		ResponderPlayerID: responder.ID,
		Value:             value,
		Note:              note,
	})
	if err != nil {
		if errors.Is(err, store.ErrQuestionAlreadyAnswered) {
			return nil, reject(CodeAlreadyAnswered, "question already answered")
		}
		return nil, err
	}

	if _, err := e.deps.Players.AddScore(ctx, responder.ID, ScoreAnswer); err != nil {
		return nil, err
	}

	now := e.now()
	if err := e.deps.Rounds.CloseRound(ctx, round.ID, now, now.Sub(round.StartedAt).Milliseconds()); err != nil {
		return nil, err
	}

	nextRound, err := e.deps.Rounds.CreateRound(ctx, &models.Round{
		GameID:         game.ID,
		RoundNo:        round.RoundNo + 1,
		ActivePlayerID: round.ActivePlayerID, // answering does not change turns
		State:          models.RoundStateAwaitingQuestion,
		StartedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	return &AnswerResult{Answer: answer, Round: nextRound}, nil
}

// SubmitGuess resolves a guess for the active player. The pointer
// advances whether or not the guess is correct; a correct guess reveals
// the target's secret and may end the game.
func (e *Engine) SubmitGuess(ctx context.Context, roomCode string, userID int64, targetPlayerID int64, characterID int64) (*GuessOutcome, error) {
	unlock := e.locks.lock(store.NormalizeRoomCode(roomCode))
	defer unlock()

	game, players, round, caller, err := e.loadTurnContext(ctx, roomCode, userID)
	if err != nil {
		return nil, err
	}
	if round.State != models.RoundStateAwaitingQuestion {
		return nil, reject(CodeWrongState, "guessing is only allowed before asking")
	}
	if round.ActivePlayerID != caller.ID {
		return nil, reject(CodeNotYourTurn, "it is not your turn to guess")
	}

	used, err := e.deps.Guesses.CountByPlayer(ctx, game.ID, caller.ID)
	if err != nil {
		return nil, err
	}
	if used >= MaxGuessesPerGame {
		return nil, reject(CodeGuessLimit, "guess limit of %d reached", MaxGuessesPerGame)
	}

	target := findPlayer(players, targetPlayerID)
	if target == nil || !target.Active() {
		return nil, reject(CodeTargetNotFound, "target player not found")
	}
	if target.ID == caller.ID {
		return nil, reject(CodeSelfGuess, "cannot guess your own character")
	}

	character, err := e.deps.Characters.GetCharacterByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character == nil {
		return nil, reject(CodeTargetNotFound, "character not found")
	}

	secret, err := e.deps.Secrets.GetByPlayer(ctx, game.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, internal("player %d has no secret assignment", target.ID)
	}

	correct := secret.State == models.SecretHidden && secret.CharacterID == character.ID

	guess, err := e.deps.Guesses.CreateGuess(ctx, &models.Guess{
		GameID:          game.ID,
		RoundID:         round.ID,
		GuesserPlayerID: caller.ID,
		TargetPlayerID:  target.ID,
		CharacterID:     character.ID,
		Correct:         correct,
	})
	if err != nil {
		return nil, err
	}

	now := e.now()
	var score int
	if correct {
		if err := e.deps.Secrets.Reveal(ctx, secret.ID, now); err != nil {
			return nil, err
		}
		secret.State = models.SecretRevealed
		if score, err = e.deps.Players.AddScore(ctx, caller.ID, ScoreCorrectGuess); err != nil {
			return nil, err
		}
	} else {
		if score, err = e.deps.Players.AddScore(ctx, caller.ID, PenaltyWrongGuess); err != nil {
			return nil, err
		}
	}

	// the turn passes regardless of guess correctness
	next, err := nextActivePlayer(players, caller.ID)
	if err != nil {
		return nil, err
	}
	if err := e.deps.Rounds.SetState(ctx, round.ID, round.State, next.ID); err != nil {
		return nil, err
	}
	round.ActivePlayerID = next.ID

	outcome := &GuessOutcome{
		Guess:          guess,
		IsCorrect:      correct,
		GuesserScore:   score,
		ActivePlayerID: next.ID,
	}

	if correct {
		over, err := e.maybeEndGame(ctx, game, round, now)
		if err != nil {
			return nil, err
		}
		outcome.GameOver = over
	}

	return outcome, nil
}

// LeaveGame marks the seat as left. If the leaver held the turn the
// pointer moves on so the remaining player is never blocked, and if
// the leave drops the hidden-secret holders to one the game completes
// with that holder as winner.
func (e *Engine) LeaveGame(ctx context.Context, roomCode string, playerID int64) (*Lobby, *GameOver, error) {
	unlock := e.locks.lock(store.NormalizeRoomCode(roomCode))
	defer unlock()

	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, nil, err
	}

	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, nil, err
	}

	seat := findPlayer(players, playerID)
	if seat == nil {
		return nil, nil, reject(CodeNotParticipant, "player is not in this game")
	}

	var over *GameOver
	if seat.Active() {
		now := e.now()
		if err := e.deps.Players.MarkLeft(ctx, seat.ID, now); err != nil {
			return nil, nil, err
		}
		seat.LeftAt.Time, seat.LeftAt.Valid = now, true

		if game.Status == models.GameStatusInProgress {
			round, err := e.deps.Rounds.GetCurrentRound(ctx, game.ID)
			if err != nil {
				return nil, nil, err
			}
			if round != nil && round.State != models.RoundStateClosed && round.ActivePlayerID == seat.ID {
				next, err := nextActivePlayer(players, seat.ID)
				if err != nil {
					log.Errorf("no active player left in room %s after leave", game.RoomCode)
				} else if err := e.deps.Rounds.SetState(ctx, round.ID, round.State, next.ID); err != nil {
					return nil, nil, err
				}
			}
			if round != nil {
				over, err = e.maybeEndGame(ctx, game, round, now)
				if err != nil {
					return nil, nil, err
				}
			}
		}
	}

	return &Lobby{Game: game, Players: players}, over, nil
}

// GameState is the read projection of a game with its current round.
func (e *Engine) GameState(ctx context.Context, roomCode string) (*GameState, error) {
	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	round, err := e.deps.Rounds.GetCurrentRound(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	return &GameState{Game: game, Players: players, Round: round}, nil
}

func (e *Engine) Questions(ctx context.Context, roomCode string) ([]*models.Question, error) {
	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return e.deps.Questions.GetQuestionsByGameID(ctx, game.ID)
}

func (e *Engine) Answers(ctx context.Context, roomCode string) ([]*models.Answer, error) {
	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return e.deps.Answers.GetAnswersByGameID(ctx, game.ID)
}

// GameOverResult returns the final summary for a completed game.
func (e *Engine) GameOverResult(ctx context.Context, roomCode string) (*GameOver, error) {
	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusCompleted {
		return nil, reject(CodeWrongStatus, "game is not over")
	}

	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	sortByPlacement(players)

	return &GameOver{Game: game, WinnerPlayerID: game.WinnerPlayerID.Int64, Placements: players}, nil
}

// maybeEndGame ends the game when at most one active player still holds
// a hidden secret; that player is the winner.
func (e *Engine) maybeEndGame(ctx context.Context, game *models.Game, round *models.Round, now time.Time) (*GameOver, error) {
	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	secrets, err := e.deps.Secrets.GetSecretsByGameID(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	hidden := make(map[int64]bool)
	for _, s := range secrets {
		if s.State == models.SecretHidden {
			hidden[s.PlayerID] = true
		}
	}

	var holders []*models.GamePlayer
	for _, p := range players {
		if p.Active() && hidden[p.ID] {
			holders = append(holders, p)
		}
	}
	if len(holders) > 1 {
		return nil, nil
	}
	if len(holders) == 0 {
		return nil, internal("game %d ended with no hidden secret holder", game.ID)
	}
	winner := holders[0]

	if err := e.deps.Games.MarkCompleted(ctx, game.ID, winner.ID, now); err != nil {
		return nil, err
	}
	game.Status = models.GameStatusCompleted
	game.WinnerPlayerID.Int64, game.WinnerPlayerID.Valid = winner.ID, true
	game.EndedAt.Time, game.EndedAt.Valid = now, true

	if err := e.deps.Rounds.CloseRound(ctx, round.ID, now, now.Sub(round.StartedAt).Milliseconds()); err != nil {
		return nil, err
	}
	round.State = models.RoundStateClosed

	placed := computePlacements(players)
	for _, p := range placed {
		if err := e.deps.Players.SetPlacement(ctx, p.ID, int(p.Placement.Int64)); err != nil {
			return nil, err
		}
	}

	e.recordStats(ctx, placed, winner.ID)

	return &GameOver{Game: game, WinnerPlayerID: winner.ID, Placements: placed}, nil
}

// recordStats is best-effort; failures never affect game completion.
func (e *Engine) recordStats(ctx context.Context, players []*models.GamePlayer, winnerID int64) {
	if e.deps.Stats == nil {
		return
	}
	for _, p := range players {
		if !p.UserID.Valid {
			continue
		}
		if err := e.deps.Stats.RecordResult(ctx, p.UserID.Int64, p.Score, p.ID == winnerID); err != nil {
			log.Errorf("failed to record stats for user %d: %v", p.UserID.Int64, err)
		}
	}
}

func (e *Engine) loadGame(ctx context.Context, roomCode string) (*models.Game, error) {
	game, err := e.deps.Games.GetGameByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, reject(CodeGameNotFound, "game not found")
	}
	return game, nil
}

// loadTurnContext resolves everything a gameplay action needs: the
// in-progress game, its seats, the current round and the caller's seat.
func (e *Engine) loadTurnContext(ctx context.Context, roomCode string, userID int64) (*models.Game, []*models.GamePlayer, *models.Round, *models.GamePlayer, error) {
	game, err := e.loadGame(ctx, roomCode)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if game.Status != models.GameStatusInProgress {
		return nil, nil, nil, nil, reject(CodeWrongStatus, "game is not in progress")
	}

	players, err := e.deps.Players.GetPlayersByGameID(ctx, game.ID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	caller := findPlayerByUser(players, userID)
	if caller == nil {
		return nil, nil, nil, nil, reject(CodeNotParticipant, "you are not a player in this game")
	}
	if !caller.Active() {
		return nil, nil, nil, nil, reject(CodeNotParticipant, "you have left this game")
	}

	round, err := e.deps.Rounds.GetCurrentRound(ctx, game.ID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if round == nil {
		return nil, nil, nil, nil, internal("game %d has no current round", game.ID)
	}

	return game, players, round, caller, nil
}

func (e *Engine) seatOf(ctx context.Context, game *models.Game, userID int64) (*models.GamePlayer, error) {
	if userID == 0 {
		return nil, reject(CodeNotParticipant, "authentication required")
	}
	seat, err := e.deps.Players.GetPlayerByGameAndUser(ctx, game.ID, userID)
	if err != nil {
		return nil, err
	}
	if seat == nil {
		return nil, reject(CodeNotParticipant, "you are not a player in this game")
	}
	return seat, nil
}

func findPlayer(players []*models.GamePlayer, playerID int64) *models.GamePlayer {
	for _, p := range players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func findPlayerByUser(players []*models.GamePlayer, userID int64) *models.GamePlayer {
	if userID == 0 {
		return nil
	}
	for _, p := range players {
		if p.UserID.Valid && p.UserID.Int64 == userID {
			return p
		}
	}
	return nil
}

// nextActivePlayer walks the full seat list starting just after the
// current player, wrapping around, and returns the first seat that has
// not left. Eliminated seats stay in the walk to preserve seat order.
func nextActivePlayer(players []*models.GamePlayer, currentID int64) (*models.GamePlayer, error) {
	idx := -1
	for i, p := range players {
		if p.ID == currentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, internal("active player %d is not seated", currentID)
	}

	for step := 1; step <= len(players); step++ {
		p := players[(idx+step)%len(players)]
		if p.Active() {
			return p, nil
		}
	}
	return nil, internal("no active players found when advancing turn")
}

// computePlacements ranks players by score descending with dense
// ranking: tied scores share a placement and the next distinct score
// takes the following number.
func computePlacements(players []*models.GamePlayer) []*models.GamePlayer {
	ranked := append([]*models.GamePlayer(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	placement := 0
	prevScore := -1
	for i, p := range ranked {
		if i == 0 || p.Score != prevScore {
			placement++
		}
		prevScore = p.Score
		p.Placement.Int64, p.Placement.Valid = int64(placement), true
	}
	return ranked
}

func sortByPlacement(players []*models.GamePlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		pi, pj := players[i].Placement.Int64, players[j].Placement.Int64
		if pi != pj {
			return pi < pj
		}
		return players[i].Score > players[j].Score
	})
}
