package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

// BudgetTotals is work income minus expenses over one period.
type BudgetTotals struct {
	TotalEarnings float64 `json:"totalEarnings"`
	TotalExpenses float64 `json:"totalExpenses"`
	Budget        float64 `json:"budget"`
}

type DailyBudget struct {
	Date string `json:"date"`
	BudgetTotals
}

type MonthlyBudget struct {
	Month string `json:"month"`
	BudgetTotals
}

type YearlyBudget struct {
	Year string `json:"year"`
	BudgetTotals
}

type Budget struct {
	Daily   DailyBudget   `json:"daily"`
	Monthly MonthlyBudget `json:"monthly"`
	Yearly  YearlyBudget  `json:"yearly"`
}

type IBudgetService interface {
	// Compute reports the budget for the day, month and year containing date, in Asia/Kolkata.
	Compute(ctx context.Context, owner primitive.ObjectID, date time.Time) (*Budget, error)
}

type budgetService struct {
	earnings *mongo.Collection
	expenses *mongo.Collection
}

func NewBudgetService(database *mongo.Database) IBudgetService {
	return &budgetService{
		earnings: database.Collection(models.CollectionEarnings),
		expenses: database.Collection(models.CollectionExpenses),
	}
}

// ParseBudgetDate reads a YYYY-MM-DD calendar date in Asia/Kolkata. Empty means today there.
func ParseBudgetDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now.In(utils.IndiaLocation()), nil
	}
	return time.ParseInLocation(utils.DateLayout, s, utils.IndiaLocation())
}

func (s *budgetService) Compute(ctx context.Context, owner primitive.ObjectID, date time.Time) (*Budget, error) {
	date = date.In(utils.IndiaLocation())
	dayStart := utils.StartOfDay(date)
	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	yearStart := time.Date(date.Year(), 1, 1, 0, 0, 0, 0, date.Location())

	daily, err := s.totals(ctx, owner, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	monthly, err := s.totals(ctx, owner, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	yearly, err := s.totals(ctx, owner, yearStart, yearStart.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}

	return &Budget{
		Daily:   DailyBudget{Date: date.Format(utils.DateLayout), BudgetTotals: daily},
		Monthly: MonthlyBudget{Month: date.Format("January 2006"), BudgetTotals: monthly},
		Yearly:  YearlyBudget{Year: date.Format("2006"), BudgetTotals: yearly},
	}, nil
}

// totals covers [from, to).
func (s *budgetService) totals(ctx context.Context, owner primitive.ObjectID, from, to time.Time) (BudgetTotals, error) {
	window := bson.M{"$gte": from.UTC(), "$lt": to.UTC()}

	earningFilter := ownerFilter(owner)
	earningFilter["source"] = models.WorkEarningSource
	earningFilter["date"] = window
	earnings, err := sumField(ctx, s.earnings, earningFilter, "amount")
	if err != nil {
		return BudgetTotals{}, err
	}

	expenseFilter := ownerFilter(owner)
	expenseFilter["date"] = window
	expenses, err := sumField(ctx, s.expenses, expenseFilter, "amount")
	if err != nil {
		return BudgetTotals{}, err
	}

	return BudgetTotals{
		TotalEarnings: earnings,
		TotalExpenses: expenses,
		Budget:        utils.SubMoney(earnings, expenses),
	}, nil
}
