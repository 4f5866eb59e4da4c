package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/nutrilog/internal/models"
)

// AnalysisLog stores every AI nutrition estimate in MongoDB.
type AnalysisLog struct {
	col *mongo.Collection
}

func NewAnalysisLog(db *mongo.Database) *AnalysisLog {
	return &AnalysisLog{col: db.Collection("meal_analyses")}
}

// EnsureIndexes creates the (user_id, meal_id, created_at) lookup index.
func (s *AnalysisLog) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "meal_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *AnalysisLog) Record(ctx context.Context, rec *models.AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.col.InsertOne(ctx, rec)
	if err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid
	}
	return nil
}

// ListByMeal returns the user's analyses of one meal, newest first.
func (s *AnalysisLog) ListByMeal(ctx context.Context, userID, mealID int64) ([]models.AnalysisRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID, "meal_id": mealID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.AnalysisRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteByMeal drops the analyses of a deleted meal.
func (s *AnalysisLog) DeleteByMeal(ctx context.Context, userID, mealID int64) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"user_id": userID, "meal_id": mealID})
	return err
}
