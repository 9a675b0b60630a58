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

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/validation"
)

type PartyInput struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

func (in *PartyInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Contact = strings.TrimSpace(in.Contact)
	in.Address = strings.TrimSpace(in.Address)
}

type IPartyService interface {
	List(ctx context.Context, owner primitive.ObjectID) ([]models.Party, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Party, error)
	Create(ctx context.Context, owner primitive.ObjectID, in *PartyInput) (*models.Party, error)
	Update(ctx context.Context, owner, id primitive.ObjectID, in *PartyInput) (*models.Party, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
}

type partyService struct {
	parties *mongo.Collection
}

func NewPartyService(database *mongo.Database) IPartyService {
	return &partyService{parties: database.Collection(models.CollectionParties)}
}

func (s *partyService) List(ctx context.Context, owner primitive.ObjectID) ([]models.Party, error) {
	cursor, err := s.parties.Find(ctx, ownerFilter(owner), options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	parties := []models.Party{}
	if err := cursor.All(ctx, &parties); err != nil {
		return nil, fmt.Errorf("failed to decode parties: %w", err)
	}
	return parties, nil
}

func (s *partyService) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Party, error) {
	var party models.Party
	if err := s.parties.FindOne(ctx, ownedByID(owner, id)).Decode(&party); err != nil {
		if isNoDocuments(err) {
			return nil, apperrors.NotFound("Party")
		}
		return nil, fmt.Errorf("failed to find party: %w", err)
	}
	return &party, nil
}

func (s *partyService) Create(ctx context.Context, owner primitive.ObjectID, in *PartyInput) (*models.Party, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	party := &models.Party{
		Base:      models.NewBase(),
		Name:      in.Name,
		Contact:   in.Contact,
		Address:   in.Address,
		CreatedBy: owner,
	}
	party.Touch(time.Now().UTC())
	if _, err := s.parties.InsertOne(ctx, party); err != nil {
		return nil, fmt.Errorf("failed to insert party: %w", err)
	}
	return party, nil
}

func (s *partyService) Update(ctx context.Context, owner, id primitive.ObjectID, in *PartyInput) (*models.Party, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{
		"name":       in.Name,
		"contact":    in.Contact,
		"address":    in.Address,
		"updated_at": time.Now().UTC(),
	}}
	var party models.Party
	if err := s.parties.FindOneAndUpdate(ctx, ownedByID(owner, id), update, opts).Decode(&party); err != nil {
		if isNoDocuments(err) {
			return nil, apperrors.NotFound("Party")
		}
		return nil, fmt.Errorf("failed to update party: %w", err)
	}
	return &party, nil
}

func (s *partyService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	res, err := s.parties.DeleteOne(ctx, ownedByID(owner, id))
	if err != nil {
		return fmt.Errorf("failed to delete party: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Party")
	}
	return nil
}
