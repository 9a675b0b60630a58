package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
	"github.com/saif-ali01/projectXAPI/internal/validation"
)

// EarningInput is a manually recorded income. Manual earnings carry no reference.
type EarningInput struct {
	Date   *time.Time `json:"date"`
	Amount float64    `json:"amount" validate:"gte=0"`
	Type   string     `json:"type" validate:"omitempty,oneof=Sales Investment Other"`
	Source string     `json:"source" validate:"max=100"`
}

type EarningListQuery struct {
	Range  utils.DateRange
	Source string
}

type IEarningService interface {
	List(ctx context.Context, owner primitive.ObjectID, q EarningListQuery) ([]models.Earning, error)
	Create(ctx context.Context, owner primitive.ObjectID, in *EarningInput) (*models.Earning, error)
}

type earningService struct {
	earnings *mongo.Collection
}

func NewEarningService(database *mongo.Database) IEarningService {
	return &earningService{earnings: database.Collection(models.CollectionEarnings)}
}

func (s *earningService) List(ctx context.Context, owner primitive.ObjectID, q EarningListQuery) ([]models.Earning, error) {
	filter := withDateRange(ownerFilter(owner), "date", q.Range)
	if source := strings.TrimSpace(q.Source); source != "" {
		filter["source"] = source
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.earnings.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	earnings := []models.Earning{}
	if err := cursor.All(ctx, &earnings); err != nil {
		return nil, fmt.Errorf("failed to decode earnings: %w", err)
	}
	return earnings, nil
}

func (s *earningService) Create(ctx context.Context, owner primitive.ObjectID, in *EarningInput) (*models.Earning, error) {
	in.Source = strings.TrimSpace(in.Source)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	earning := &models.Earning{
		Base:      models.NewBase(),
		Date:      now,
		Amount:    in.Amount,
		Type:      models.EarningTypeOther,
		Source:    in.Source,
		CreatedBy: owner,
		CreatedAt: now,
	}
	if in.Date != nil {
		earning.Date = in.Date.UTC()
	}
	if in.Type != "" {
		earning.Type = models.EarningType(in.Type)
	}
	if _, err := s.earnings.InsertOne(ctx, earning); err != nil {
		return nil, fmt.Errorf("failed to insert earning: %w", err)
	}
	return earning, nil
}
