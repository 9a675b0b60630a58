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

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
	"github.com/saif-ali01/projectXAPI/internal/validation"
)

const defaultTransactionLimit = 10

var expenseSortFields = map[string]string{
	"date":        "date",
	"amount":      "amount",
	"category":    "category",
	"description": "description",
	"type":        "type",
}

type ExpenseInput struct {
	Date        *time.Time `json:"date"`
	Description string     `json:"description" validate:"required,max=500"`
	Category    string     `json:"category" validate:"required,oneof=Food Travel Equipment Other"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	Type        string     `json:"type" validate:"required,oneof=Personal Professional"`
}

func (in *ExpenseInput) apply(expense *models.Expense) error {
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return err
	}
	expense.Description = in.Description
	expense.Category = in.Category
	expense.Amount = in.Amount
	expense.Type = in.Type
	if in.Date != nil {
		expense.Date = in.Date.UTC()
	} else if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	return nil
}

type ExpenseSummary struct {
	TotalPersonal     float64 `json:"totalPersonal"`
	TotalProfessional float64 `json:"totalProfessional"`
	BudgetUsedPercent float64 `json:"budgetUsedPercent"`
	HighestCategory   string  `json:"highestCategory"`
}

type ExpensePeriod struct {
	Period       string  `json:"period"`
	Personal     float64 `json:"personal"`
	Professional float64 `json:"professional"`
}

type CategoryTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TransactionQuery selects the recent-transactions list. Empty fields fall back to date desc, limit 10.
type TransactionQuery struct {
	Range    utils.DateRange
	SortBy   string
	Order    string
	Category string
	Type     string
	Limit    int64
}

type IExpenseService interface {
	Create(ctx context.Context, owner primitive.ObjectID, in *ExpenseInput) (*models.Expense, error)
	List(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) ([]models.Expense, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Expense, error)
	Update(ctx context.Context, owner, id primitive.ObjectID, in *ExpenseInput) (*models.Expense, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
	Summary(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) (*ExpenseSummary, error)
	OverTime(ctx context.Context, owner primitive.ObjectID, r utils.DateRange, tf utils.TimeFrame) ([]ExpensePeriod, error)
	Categories(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) ([]CategoryTotal, error)
	Transactions(ctx context.Context, owner primitive.ObjectID, q TransactionQuery) ([]models.Expense, error)
}

type expenseService struct {
	expenses *mongo.Collection
	budget   float64
}

// NewExpenseService returns the expense service. budget is the spending cap the summary reports against.
func NewExpenseService(database *mongo.Database, budget float64) IExpenseService {
	return &expenseService{expenses: database.Collection(models.CollectionExpenses), budget: budget}
}

func (s *expenseService) Create(ctx context.Context, owner primitive.ObjectID, in *ExpenseInput) (*models.Expense, error) {
	expense := &models.Expense{Base: models.NewBase(), CreatedBy: owner}
	if err := in.apply(expense); err != nil {
		return nil, err
	}
	expense.Touch(time.Now().UTC())
	if _, err := s.expenses.InsertOne(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}
	return expense, nil
}

func (s *expenseService) List(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) ([]models.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	return s.find(ctx, withDateRange(ownerFilter(owner), "date", r), opts)
}

func (s *expenseService) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Expense, error) {
	cursor, err := s.expenses.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	expenses := []models.Expense{}
	if err := cursor.All(ctx, &expenses); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	return expenses, nil
}

func (s *expenseService) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Expense, error) {
	var expense models.Expense
	if err := s.expenses.FindOne(ctx, ownedByID(owner, id)).Decode(&expense); err != nil {
		if isNoDocuments(err) {
			return nil, apperrors.NotFound("Expense")
		}
		return nil, fmt.Errorf("failed to find expense: %w", err)
	}
	return &expense, nil
}

func (s *expenseService) Update(ctx context.Context, owner, id primitive.ObjectID, in *ExpenseInput) (*models.Expense, error) {
	expense, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(expense); err != nil {
		return nil, err
	}
	expense.Touch(time.Now().UTC())
	res, err := s.expenses.ReplaceOne(ctx, ownedByID(owner, id), expense)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, apperrors.NotFound("Expense")
	}
	return expense, nil
}

func (s *expenseService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	res, err := s.expenses.DeleteOne(ctx, ownedByID(owner, id))
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Expense")
	}
	return nil
}

func (s *expenseService) groupTotals(ctx context.Context, filter bson.M, key interface{}) ([]keyedTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": key, "total": bson.M{"$sum": "$amount"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := s.expenses.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	rows := []keyedTotal{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode expense totals: %w", err)
	}
	return rows, nil
}

func (s *expenseService) Summary(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) (*ExpenseSummary, error) {
	filter := withDateRange(ownerFilter(owner), "date", r)
	byType, err := s.groupTotals(ctx, filter, "$type")
	if err != nil {
		return nil, err
	}
	byCategory, err := s.groupTotals(ctx, filter, "$category")
	if err != nil {
		return nil, err
	}

	summary := &ExpenseSummary{HighestCategory: "None"}
	for _, row := range byType {
		switch row.Key {
		case models.ExpenseTypePersonal:
			summary.TotalPersonal = row.Total
		case models.ExpenseTypeProfessional:
			summary.TotalProfessional = row.Total
		}
	}
	if len(byCategory) > 0 {
		summary.HighestCategory = byCategory[0].Key
	}
	spent := utils.SumMoney(summary.TotalPersonal, summary.TotalProfessional)
	summary.BudgetUsedPercent = utils.PercentOf(spent, s.budget)
	return summary, nil
}

func (s *expenseService) OverTime(ctx context.Context, owner primitive.ObjectID, r utils.DateRange, tf utils.TimeFrame) ([]ExpensePeriod, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: withDateRange(ownerFilter(owner), "date", r)}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"period": bson.M{"$dateToString": bson.M{"format": tf.MongoFormat(), "date": "$date"}},
				"type":   "$type",
			},
			"total": bson.M{"$sum": "$amount"},
		}}},
	}
	cursor, err := s.expenses.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses over time: %w", err)
	}
	var rows []struct {
		ID struct {
			Period string `bson:"period"`
			Type   string `bson:"type"`
		} `bson:"_id"`
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode expenses over time: %w", err)
	}

	byPeriod := map[string]*ExpensePeriod{}
	for _, row := range rows {
		p, ok := byPeriod[row.ID.Period]
		if !ok {
			p = &ExpensePeriod{Period: row.ID.Period}
			byPeriod[row.ID.Period] = p
		}
		switch row.ID.Type {
		case models.ExpenseTypePersonal:
			p.Personal = utils.SumMoney(p.Personal, row.Total)
		case models.ExpenseTypeProfessional:
			p.Professional = utils.SumMoney(p.Professional, row.Total)
		}
	}

	periods := make([]ExpensePeriod, 0, len(byPeriod))
	for _, p := range byPeriod {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Period < periods[j].Period })
	return periods, nil
}

func (s *expenseService) Categories(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) ([]CategoryTotal, error) {
	rows, err := s.groupTotals(ctx, withDateRange(ownerFilter(owner), "date", r), "$category")
	if err != nil {
		return nil, err
	}
	categories := make([]CategoryTotal, len(rows))
	for i, row := range rows {
		categories[i] = CategoryTotal{Name: row.Key, Value: row.Total}
	}
	return categories, nil
}

func (s *expenseService) Transactions(ctx context.Context, owner primitive.ObjectID, q TransactionQuery) ([]models.Expense, error) {
	field, ok := expenseSortFields[q.SortBy]
	if !ok {
		field = "date"
	}
	direction := -1
	if strings.EqualFold(q.Order, "asc") {
		direction = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}

	filter := withDateRange(ownerFilter(owner), "date", q.Range)
	if q.Category != "" && q.Category != "All" {
		filter["category"] = q.Category
	}
	if q.Type != "" && q.Type != "All" {
		filter["type"] = q.Type
	}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: direction}, {Key: "_id", Value: direction}}).
		SetLimit(limit)
	return s.find(ctx, filter, opts)
}
