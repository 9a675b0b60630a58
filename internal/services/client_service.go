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
	"github.com/saif-ali01/projectXAPI/internal/db"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/validation"
)

type ClientInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

func (in *ClientInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
}

type ClientListQuery struct {
	PageRequest
	Search string
}

type ClientList struct {
	Clients     []models.Client `json:"clients"`
	TotalPages  int64           `json:"totalPages"`
	CurrentPage int64           `json:"currentPage"`
}

type IClientService interface {
	Create(ctx context.Context, owner primitive.ObjectID, in *ClientInput) (*models.Client, error)
	List(ctx context.Context, owner primitive.ObjectID, q ClientListQuery) (*ClientList, error)
	// Update merges the non-empty fields of in into the client.
	Update(ctx context.Context, owner, id primitive.ObjectID, in *ClientInput) (*models.Client, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
}

type clientService struct {
	clients *mongo.Collection
}

func NewClientService(database *mongo.Database) IClientService {
	return &clientService{clients: database.Collection(models.CollectionClients)}
}

func duplicateClientEmail(err error) error {
	return apperrors.Conflict("A client with this email already exists", err)
}

func (s *clientService) Create(ctx context.Context, owner primitive.ObjectID, in *ClientInput) (*models.Client, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	client := &models.Client{
		Base:      models.NewBase(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedBy: owner,
	}
	client.Touch(time.Now().UTC())

	if _, err := s.clients.InsertOne(ctx, client); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, duplicateClientEmail(err)
		}
		return nil, fmt.Errorf("failed to insert client: %w", err)
	}
	return client, nil
}

func (s *clientService) List(ctx context.Context, owner primitive.ObjectID, q ClientListQuery) (*ClientList, error) {
	page := q.normalize()
	filter := ownerFilter(owner)
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := containsPattern(search)
		filter["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(page.skip()).
		SetLimit(page.Limit)
	cursor, err := s.clients.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	clients := []models.Client{}
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("failed to decode clients: %w", err)
	}
	count, err := s.clients.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}

	return &ClientList{Clients: clients, TotalPages: totalPages(count, page.Limit), CurrentPage: page.Page}, nil
}

func (s *clientService) Update(ctx context.Context, owner, id primitive.ObjectID, in *ClientInput) (*models.Client, error) {
	var client models.Client
	if err := s.clients.FindOne(ctx, ownedByID(owner, id)).Decode(&client); err != nil {
		if isNoDocuments(err) {
			return nil, apperrors.NotFound("Client")
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}

	in.normalize()
	merged := ClientInput{Name: client.Name, Email: client.Email, Phone: client.Phone}
	if in.Name != "" {
		merged.Name = in.Name
	}
	if in.Email != "" {
		merged.Email = in.Email
	}
	if in.Phone != "" {
		merged.Phone = in.Phone
	}
	if err := validation.Struct(&merged); err != nil {
		return nil, err
	}

	client.Name, client.Email, client.Phone = merged.Name, merged.Email, merged.Phone
	client.Touch(time.Now().UTC())
	if _, err := s.clients.ReplaceOne(ctx, ownedByID(owner, id), &client); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, duplicateClientEmail(err)
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return &client, nil
}

func (s *clientService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	res, err := s.clients.DeleteOne(ctx, ownedByID(owner, id))
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Client")
	}
	return nil
}
