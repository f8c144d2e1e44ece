package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
)

type PlayerStatsStore struct {
	col *mongo.Collection
}

func NewPlayerStatsStore(db *mongo.Database) *PlayerStatsStore {
	return &PlayerStatsStore{col: db.Collection("player_stats")}
}

// RecordResult folds one finished game into the user's aggregate.
func (s *PlayerStatsStore) RecordResult(ctx context.Context, userID int64, score int, won bool) error {
	stats, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = &models.PlayerStats{UserID: userID}
	}

	stats.GamesPlayed++
	if won {
		stats.Wins++
	}
	stats.TotalScore += int64(score)
	if score > stats.BestScore {
		stats.BestScore = score
	}
	stats.WinRate = decimal.NewFromInt(int64(stats.Wins)).
		Div(decimal.NewFromInt(int64(stats.GamesPlayed))).
		StringFixed(2)
	stats.UpdatedAt = time.Now()

	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": stats}
	opts := options.Update().SetUpsert(true)

	_, err = s.col.UpdateOne(ctx, filter, update, opts)
	return err
}

func (s *PlayerStatsStore) GetByUserID(ctx context.Context, userID int64) (*models.PlayerStats, error) {
	stats := &models.PlayerStats{}
	err := s.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return stats, nil
}
