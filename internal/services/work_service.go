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
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/db"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

const workDisplayLayout = "2006-01-02 15:04:05"

var workSorts = map[string]string{
	"quantity":    "quantity",
	"rate":        "rate",
	"dateAndTime": "date_and_time",
	"createdAt":   "created_at",
}

// WorkInput creates a work. Currency defaults to INR and DateAndTime to now.
type WorkInput struct {
	Particulars string     `json:"particulars"`
	Type        string     `json:"type"`
	Size        string     `json:"size"`
	Party       string     `json:"party"`
	DateAndTime *time.Time `json:"dateAndTime"`
	Quantity    float64    `json:"quantity"`
	Rate        float64    `json:"rate"`
	Currency    string     `json:"currency"`
	Paid        bool       `json:"paid"`
}

// WorkPatch updates only the fields that are set.
type WorkPatch struct {
	Particulars *string    `json:"particulars"`
	Type        *string    `json:"type"`
	Size        *string    `json:"size"`
	Party       *string    `json:"party"`
	DateAndTime *time.Time `json:"dateAndTime"`
	Quantity    *float64   `json:"quantity"`
	Rate        *float64   `json:"rate"`
	Currency    *string    `json:"currency"`
	Paid        *bool      `json:"paid"`
}

// WorkView is the API shape of a work, with its timestamp shown in India time.
type WorkView struct {
	ID          string  `json:"id"`
	Particulars string  `json:"particulars"`
	Type        string  `json:"type"`
	Size        string  `json:"size"`
	Party       string  `json:"party"`
	PartyID     string  `json:"partyId"`
	DateAndTime string  `json:"dateAndTime"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Paid        bool    `json:"paid"`
}

func NewWorkView(w *models.Work) WorkView {
	return WorkView{
		ID:          w.ID.Hex(),
		Particulars: w.Particulars,
		Type:        w.Type,
		Size:        w.Size,
		Party:       w.Party,
		PartyID:     w.PartyID.Hex(),
		DateAndTime: w.DateAndTime.In(utils.IndiaLocation()).Format(workDisplayLayout),
		Quantity:    w.Quantity,
		Rate:        w.Rate,
		Amount:      w.Amount(),
		Currency:    w.Currency,
		Paid:        w.Paid,
	}
}

type WorkListQuery struct {
	PageRequest
	Search string
	Type   string
	Sort   string
}

// WorkList is a paginated envelope.
type WorkList struct {
	Docs        []WorkView `json:"docs"`
	TotalDocs   int64      `json:"totalDocs"`
	Limit       int64      `json:"limit"`
	Page        int64      `json:"page"`
	TotalPages  int64      `json:"totalPages"`
	HasPrevPage bool       `json:"hasPrevPage"`
	HasNextPage bool       `json:"hasNextPage"`
	PrevPage    *int64     `json:"prevPage"`
	NextPage    *int64     `json:"nextPage"`
}

type IWorkService interface {
	Create(ctx context.Context, owner primitive.ObjectID, in *WorkInput) (*models.Work, error)
	List(ctx context.Context, owner primitive.ObjectID, q WorkListQuery) (*WorkList, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Work, error)
	Update(ctx context.Context, owner, id primitive.ObjectID, patch *WorkPatch) (*models.Work, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
}

type workService struct {
	works      *mongo.Collection
	clients    *mongo.Collection
	txManager  db.TransactionManager
	reconciler IEarningReconciler
	logger     *zap.Logger
}

func NewWorkService(database *mongo.Database, txManager db.TransactionManager, reconciler IEarningReconciler, logger *zap.Logger) IWorkService {
	return &workService{
		works:      database.Collection(models.CollectionWorks),
		clients:    database.Collection(models.CollectionClients),
		txManager:  txManager,
		reconciler: reconciler,
		logger:     logger.Named("works"),
	}
}

func workPaidState(w *models.Work) PaidState {
	return PaidState{Paid: w.Paid, Amount: w.Amount(), Date: w.DateAndTime}
}

func workSource(w *models.Work) SourceDescriptor {
	return SourceDescriptor{Tag: models.WorkEarningSource, Reference: w.ID}
}

func validateWork(w *models.Work) error {
	var fields []apperrors.FieldError
	required := map[string]string{"particulars": w.Particulars, "type": w.Type, "size": w.Size, "party": w.Party}
	for _, name := range []string{"particulars", "type", "size", "party"} {
		if strings.TrimSpace(required[name]) == "" {
			fields = append(fields, apperrors.FieldError{Field: name, Message: "is required"})
		}
	}
	if w.Quantity < 1 {
		fields = append(fields, apperrors.FieldError{Field: "quantity", Message: "must be at least 1"})
	}
	if w.Rate < 0.01 {
		fields = append(fields, apperrors.FieldError{Field: "rate", Message: "must be at least 0.01"})
	}
	if w.Currency != models.CurrencyINR {
		fields = append(fields, apperrors.FieldError{Field: "currency", Message: "Currency must be INR"})
	}
	if len(fields) > 0 {
		return apperrors.Validation("Validation failed", fields...)
	}
	return nil
}

// resolveClient finds the owner's client named party.
func (s *workService) resolveClient(ctx context.Context, owner primitive.ObjectID, party string) (primitive.ObjectID, error) {
	var client models.Client
	err := s.clients.FindOne(ctx, bson.M{"name": strings.TrimSpace(party), "created_by": owner}).Decode(&client)
	if err != nil {
		if isNoDocuments(err) {
			return primitive.NilObjectID, apperrors.Validation("Party not found",
				apperrors.FieldError{Field: "party", Message: "Party not found"})
		}
		return primitive.NilObjectID, fmt.Errorf("failed to find client: %w", err)
	}
	return client.ID, nil
}

func (s *workService) Create(ctx context.Context, owner primitive.ObjectID, in *WorkInput) (*models.Work, error) {
	work := &models.Work{
		Base:        models.NewBase(),
		Particulars: strings.TrimSpace(in.Particulars),
		Type:        in.Type,
		Size:        in.Size,
		Party:       strings.TrimSpace(in.Party),
		Quantity:    in.Quantity,
		Rate:        in.Rate,
		Currency:    in.Currency,
		Paid:        in.Paid,
		CreatedBy:   owner,
	}
	if work.Currency == "" {
		work.Currency = models.CurrencyINR
	}
	if in.DateAndTime != nil {
		work.DateAndTime = in.DateAndTime.UTC()
	} else {
		work.DateAndTime = time.Now().UTC()
	}
	work.Touch(time.Now().UTC())
	if err := validateWork(work); err != nil {
		return nil, err
	}

	_, err := s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		partyID, err := s.resolveClient(sessCtx, owner, work.Party)
		if err != nil {
			return nil, err
		}
		work.PartyID = partyID

		if _, err := s.works.InsertOne(sessCtx, work); err != nil {
			return nil, fmt.Errorf("failed to insert work: %w", err)
		}
		return nil, s.reconciler.Reconcile(sessCtx, owner, workSource(work), PaidState{}, workPaidState(work))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Work created", zap.String("work_id", work.ID.Hex()), zap.Bool("paid", work.Paid))
	return work, nil
}

func (s *workService) List(ctx context.Context, owner primitive.ObjectID, q WorkListQuery) (*WorkList, error) {
	page := q.normalize()
	filter := ownerFilter(owner)
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := containsPattern(search)
		filter["$or"] = bson.A{
			bson.M{"particulars": pattern},
			bson.M{"party": pattern},
		}
	}
	if q.Type != "" && q.Type != "All" {
		filter["type"] = q.Type
	}

	sortBy := bson.D{{Key: "created_at", Value: -1}}
	if field, ok := workSorts[q.Sort]; ok {
		sortBy = bson.D{{Key: field, Value: 1}}
	}
	sortBy = append(sortBy, bson.E{Key: "_id", Value: -1})

	cursor, err := s.works.Find(ctx, filter, options.Find().SetSort(sortBy).SetSkip(page.skip()).SetLimit(page.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list works: %w", err)
	}
	var works []models.Work
	if err := cursor.All(ctx, &works); err != nil {
		return nil, fmt.Errorf("failed to decode works: %w", err)
	}
	count, err := s.works.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count works: %w", err)
	}

	list := &WorkList{
		Docs:       make([]WorkView, len(works)),
		TotalDocs:  count,
		Limit:      page.Limit,
		Page:       page.Page,
		TotalPages: totalPages(count, page.Limit),
	}
	for i := range works {
		list.Docs[i] = NewWorkView(&works[i])
	}
	list.HasPrevPage = page.Page > 1
	list.HasNextPage = page.Page < list.TotalPages
	if list.HasPrevPage {
		prev := page.Page - 1
		list.PrevPage = &prev
	}
	if list.HasNextPage {
		next := page.Page + 1
		list.NextPage = &next
	}
	return list, nil
}

func (s *workService) get(ctx context.Context, owner, id primitive.ObjectID) (*models.Work, error) {
	var work models.Work
	if err := s.works.FindOne(ctx, ownedByID(owner, id)).Decode(&work); err != nil {
		if isNoDocuments(err) {
			return nil, apperrors.NotFound("Work")
		}
		return nil, fmt.Errorf("failed to find work: %w", err)
	}
	return &work, nil
}

func (s *workService) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Work, error) {
	return s.get(ctx, owner, id)
}

func (s *workService) Update(ctx context.Context, owner, id primitive.ObjectID, patch *WorkPatch) (*models.Work, error) {
	result, err := s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		previous, err := s.get(sessCtx, owner, id)
		if err != nil {
			return nil, err
		}

		updated := *previous
		if patch.Particulars != nil {
			updated.Particulars = strings.TrimSpace(*patch.Particulars)
		}
		if patch.Type != nil {
			updated.Type = *patch.Type
		}
		if patch.Size != nil {
			updated.Size = *patch.Size
		}
		if patch.DateAndTime != nil {
			updated.DateAndTime = patch.DateAndTime.UTC()
		}
		if patch.Quantity != nil {
			updated.Quantity = *patch.Quantity
		}
		if patch.Rate != nil {
			updated.Rate = *patch.Rate
		}
		if patch.Currency != nil {
			updated.Currency = *patch.Currency
		}
		if patch.Paid != nil {
			updated.Paid = *patch.Paid
		}
		if patch.Party != nil {
			updated.Party = strings.TrimSpace(*patch.Party)
			if updated.PartyID, err = s.resolveClient(sessCtx, owner, updated.Party); err != nil {
				return nil, err
			}
		}
		if err := validateWork(&updated); err != nil {
			return nil, err
		}
		updated.Touch(time.Now().UTC())

		if _, err := s.works.ReplaceOne(sessCtx, ownedByID(owner, id), &updated); err != nil {
			return nil, fmt.Errorf("failed to update work: %w", err)
		}
		if err := s.reconciler.Reconcile(sessCtx, owner, workSource(&updated), workPaidState(previous), workPaidState(&updated)); err != nil {
			return nil, err
		}
		return &updated, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Work), nil
}

func (s *workService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	_, err := s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		var work models.Work
		if err := s.works.FindOneAndDelete(sessCtx, ownedByID(owner, id)).Decode(&work); err != nil {
			if isNoDocuments(err) {
				return nil, apperrors.NotFound("Work")
			}
			return nil, fmt.Errorf("failed to delete work: %w", err)
		}
		return nil, s.reconciler.Reconcile(sessCtx, owner, workSource(&work), workPaidState(&work), PaidState{})
	})
	return err
}
