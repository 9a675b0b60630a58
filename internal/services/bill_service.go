package services

import (
	"context"
	"fmt"
	"sort"
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
	"github.com/saif-ali01/projectXAPI/internal/validation"
)

var (
	billSorts = map[string]bson.D{
		"newest":         {{Key: "date", Value: -1}, {Key: "_id", Value: -1}},
		"oldest":         {{Key: "date", Value: 1}, {Key: "_id", Value: 1}},
		"highest-amount": {{Key: "total", Value: -1}, {Key: "_id", Value: -1}},
		"lowest-amount":  {{Key: "total", Value: 1}, {Key: "_id", Value: 1}},
	}
)

// BillInput carries the editable fields of a bill.
type BillInput struct {
	PartyName       string           `json:"partyName" validate:"required"`
	Date            *time.Time       `json:"date"`
	Rows            []models.BillRow `json:"rows" validate:"required,min=1,dive"`
	Advance         float64          `json:"advance" validate:"gte=0"`
	PreviousBalance float64          `json:"previousBalance" validate:"gte=0"`
	Due             float64          `json:"due" validate:"gte=0"`
	Status          string           `json:"status" validate:"oneof=pending due paid"`
	Note            string           `json:"note"`
}

// apply validates in and copies it onto bill, recomputing the derived amounts.
// bill is left untouched when validation fails.
func (in *BillInput) apply(bill *models.Bill) error {
	norm := *in
	norm.PartyName = strings.ToLower(strings.TrimSpace(in.PartyName))
	norm.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if norm.Status == "" {
		norm.Status = string(models.BillStatusPending)
	}
	norm.Rows = make([]models.BillRow, len(in.Rows))
	for i, row := range in.Rows {
		if row.ID == 0 {
			row.ID = 1
		}
		row.Particulars = strings.TrimSpace(row.Particulars)
		row.CustomType = strings.TrimSpace(row.CustomType)
		row.CustomSize = strings.TrimSpace(row.CustomSize)
		norm.Rows[i] = row
	}
	if err := validation.Struct(&norm); err != nil {
		return err
	}

	next := *bill
	next.PartyName = norm.PartyName
	next.Rows = norm.Rows
	next.Advance = norm.Advance
	next.PreviousBalance = norm.PreviousBalance
	next.Due = norm.Due
	next.Status = models.BillStatus(norm.Status)
	next.Note = strings.TrimSpace(norm.Note)
	if norm.Date != nil {
		next.Date = norm.Date.UTC()
	}
	if next.Date.IsZero() {
		next.Date = time.Now().UTC()
	}
	next.ApplyDerived()
	if !next.IsPaid() && next.Balance < 0 {
		return apperrors.Validation("Validation failed", apperrors.FieldError{
			Field:   "advance",
			Message: "Advance cannot exceed the total plus the previous balance",
		})
	}
	*bill = next
	return nil
}

// BillListQuery filters and orders the bill list.
type BillListQuery struct {
	PageRequest
	SortBy string
	Search string
}

type BillList struct {
	Bills       []models.Bill `json:"bills"`
	TotalPages  int64         `json:"totalPages"`
	CurrentPage int64         `json:"currentPage"`
	TotalDocs   int64         `json:"totalDocs"`
}

// BillStatPoint is the paid revenue of one period.
type BillStatPoint struct {
	Date         string  `json:"date"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// IBillService defines bill operations. Every call is scoped to owner.
type IBillService interface {
	Create(ctx context.Context, owner primitive.ObjectID, in *BillInput) (*models.Bill, error)
	List(ctx context.Context, owner primitive.ObjectID, q BillListQuery) (*BillList, error)
	GetByID(ctx context.Context, owner, id primitive.ObjectID) (*models.Bill, error)
	GetBySerial(ctx context.Context, owner primitive.ObjectID, serial int64) (*models.Bill, error)
	Update(ctx context.Context, owner, id primitive.ObjectID, in *BillInput) (*models.Bill, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
	Stats(ctx context.Context, owner primitive.ObjectID, start, end time.Time, tf utils.TimeFrame) ([]BillStatPoint, error)
	PartyNames(ctx context.Context, owner primitive.ObjectID) ([]string, error)
}

type billService struct {
	db         *mongo.Database
	bills      *mongo.Collection
	txManager  db.TransactionManager
	reconciler IEarningReconciler
	logger     *zap.Logger
}

func NewBillService(database *mongo.Database, txManager db.TransactionManager, reconciler IEarningReconciler, logger *zap.Logger) IBillService {
	return &billService{
		db:         database,
		bills:      database.Collection(models.CollectionBills),
		txManager:  txManager,
		reconciler: reconciler,
		logger:     logger.Named("bills"),
	}
}

func billPaidState(b *models.Bill) PaidState {
	return PaidState{Paid: b.IsPaid(), Amount: b.Total, Date: b.Date}
}

func billSource(b *models.Bill) SourceDescriptor {
	return SourceDescriptor{Tag: b.EarningSource(), Reference: b.ID}
}

// Create assigns the next serial number and inserts the bill together with its
// earning when it is created paid. A serial collision with bills written
// outside the counter resyncs the counter and retries.
func (s *billService) Create(ctx context.Context, owner primitive.ObjectID, in *BillInput) (*models.Bill, error) {
	bill := &models.Bill{CreatedBy: owner}
	if err := in.apply(bill); err != nil {
		return nil, err
	}
	bill.Touch(time.Now().UTC())

	isSerialCollision := db.IsDuplicateKeyOn(db.SerialNumberIndex)
	operation := func() error {
		bill.GenID()
		_, err := s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
			serial, err := db.NextSequence(sessCtx, s.db, db.BillSerialCounter)
			if err != nil {
				return nil, err
			}
			bill.SerialNumber = serial

			if _, err := s.bills.InsertOne(sessCtx, bill); err != nil {
				return nil, err
			}
			return nil, s.reconciler.Reconcile(sessCtx, owner, billSource(bill), PaidState{}, billPaidState(bill))
		})
		if isSerialCollision(err) {
			s.logger.Warn("Bill serial collision, resyncing counter", zap.Int64("serial", bill.SerialNumber))
			if syncErr := db.SyncBillSerialCounter(ctx, s.db); syncErr != nil {
				s.logger.Error("Failed to resync bill serial counter", zap.Error(syncErr))
			}
		}
		return err
	}

	if err := db.WithRetries(operation, db.DefaultMaxRetries, isSerialCollision); err != nil {
		if apperrors.KindOf(err) != apperrors.KindInternal {
			return nil, err
		}
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperrors.Conflict("Could not assign a unique serial number", err)
		}
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	s.logger.Info("Bill created",
		zap.String("bill_id", bill.ID.Hex()),
		zap.Int64("serial", bill.SerialNumber),
		zap.String("status", string(bill.Status)),
	)
	return bill, nil
}

func (s *billService) List(ctx context.Context, owner primitive.ObjectID, q BillListQuery) (*BillList, error) {
	page := q.normalize()
	filter := ownerFilter(owner)
	if search := strings.TrimSpace(q.Search); search != "" {
		filter["party_name"] = containsPattern(search)
	}

	sortBy, ok := billSorts[q.SortBy]
	if !ok {
		sortBy = billSorts["newest"]
	}

	opts := options.Find().SetSort(sortBy).SetSkip(page.skip()).SetLimit(page.Limit)
	cursor, err := s.bills.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	bills := []models.Bill{}
	if err := cursor.All(ctx, &bills); err != nil {
		return nil, fmt.Errorf("failed to decode bills: %w", err)
	}

	count, err := s.bills.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count bills: %w", err)
	}

	return &BillList{
		Bills:       bills,
		TotalPages:  totalPages(count, page.Limit),
		CurrentPage: page.Page,
		TotalDocs:   count,
	}, nil
}

func (s *billService) findOne(ctx context.Context, filter bson.M) (*models.Bill, error) {
	var bill models.Bill
	if err := s.bills.FindOne(ctx, filter).Decode(&bill); err != nil {
		if isNoDocuments(err) {
			return nil, apperrors.NotFound("Bill")
		}
		return nil, fmt.Errorf("failed to find bill: %w", err)
	}
	return &bill, nil
}

func (s *billService) GetByID(ctx context.Context, owner, id primitive.ObjectID) (*models.Bill, error) {
	return s.findOne(ctx, ownedByID(owner, id))
}

func (s *billService) GetBySerial(ctx context.Context, owner primitive.ObjectID, serial int64) (*models.Bill, error) {
	return s.findOne(ctx, bson.M{"serial_number": serial, "created_by": owner})
}

// Update replaces the editable fields and reconciles the earning with the
// old and new paid state in the same transaction.
func (s *billService) Update(ctx context.Context, owner, id primitive.ObjectID, in *BillInput) (*models.Bill, error) {
	result, err := s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		previous, err := s.findOne(sessCtx, ownedByID(owner, id))
		if err != nil {
			return nil, err
		}

		updated := *previous
		if err := in.apply(&updated); err != nil {
			return nil, err
		}
		updated.Touch(time.Now().UTC())

		if _, err := s.bills.ReplaceOne(sessCtx, ownedByID(owner, id), &updated); err != nil {
			return nil, fmt.Errorf("failed to update bill: %w", err)
		}
		if err := s.reconciler.Reconcile(sessCtx, owner, billSource(&updated), billPaidState(previous), billPaidState(&updated)); err != nil {
			return nil, err
		}
		return &updated, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Bill), nil
}

// Delete removes the bill and, if it was paid, its earning.
func (s *billService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	_, err := s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		var bill models.Bill
		if err := s.bills.FindOneAndDelete(sessCtx, ownedByID(owner, id)).Decode(&bill); err != nil {
			if isNoDocuments(err) {
				return nil, apperrors.NotFound("Bill")
			}
			return nil, fmt.Errorf("failed to delete bill: %w", err)
		}
		return nil, s.reconciler.Reconcile(sessCtx, owner, billSource(&bill), billPaidState(&bill), PaidState{})
	})
	return err
}

// Stats sums the total of paid bills per period between start and end,
// including periods with no revenue.
func (s *billService) Stats(ctx context.Context, owner primitive.ObjectID, start, end time.Time, tf utils.TimeFrame) ([]BillStatPoint, error) {
	filter := ownerFilter(owner)
	filter["status"] = models.BillStatusPaid
	filter["date"] = bson.M{"$gte": start, "$lte": end}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": tf.MongoFormat(), "date": "$date"}},
			"total": bson.M{"$sum": "$total"},
		}}},
	}
	cursor, err := s.bills.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bill stats: %w", err)
	}
	var rows []keyedTotal
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode bill stats: %w", err)
	}

	byPeriod := make(map[string]float64, len(rows))
	for _, row := range rows {
		byPeriod[row.Key] = row.Total
	}

	periods := tf.Periods(start.UTC(), end.UTC())
	points := make([]BillStatPoint, len(periods))
	for i, period := range periods {
		points[i] = BillStatPoint{Date: period, TotalRevenue: byPeriod[period]}
	}
	return points, nil
}

func (s *billService) PartyNames(ctx context.Context, owner primitive.ObjectID) ([]string, error) {
	raw, err := s.bills.Distinct(ctx, "party_name", ownerFilter(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to list party names: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	names := []string{}
	for _, v := range raw {
		name, ok := v.(string)
		if !ok {
			continue
		}
		name = strings.ToLower(name)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
