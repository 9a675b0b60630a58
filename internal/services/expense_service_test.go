package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

func expenseOn(day time.Time, category, kind string, amount float64) *ExpenseInput {
	return &ExpenseInput{Date: &day, Description: category + " spend", Category: category, Amount: amount, Type: kind}
}

func TestExpenseInput_Validation(t *testing.T) {
	var expense models.Expense
	err := (&ExpenseInput{Category: "Rent", Amount: 0, Type: "Household"}).apply(&expense)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)

	fields := map[string]bool{}
	for _, f := range appErr.Fields {
		fields[f.Field] = true
	}
	assert.Equal(t, map[string]bool{"description": true, "category": true, "amount": true, "type": true}, fields)
}

func TestExpenseService_Analytics(t *testing.T) {
	database := setupLedgerDB(t, "ledger_expense_test")
	svc := NewExpenseService(database, 1000)
	ctx := context.Background()
	owner := primitive.NewObjectID()

	summary, err := svc.Summary(ctx, owner, utils.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "None", summary.HighestCategory)
	assert.Zero(t, summary.BudgetUsedPercent)

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	inputs := []*ExpenseInput{
		expenseOn(jan, "Food", models.ExpenseTypePersonal, 100),
		expenseOn(jan, "Travel", models.ExpenseTypeProfessional, 300),
		expenseOn(feb, "Food", models.ExpenseTypePersonal, 50),
		expenseOn(feb, "Equipment", models.ExpenseTypeProfessional, 50),
	}
	for _, in := range inputs {
		_, err := svc.Create(ctx, owner, in)
		require.NoError(t, err)
	}
	_, err = svc.Create(ctx, primitive.NewObjectID(), expenseOn(jan, "Other", models.ExpenseTypePersonal, 9999))
	require.NoError(t, err)

	summary, err = svc.Summary(ctx, owner, utils.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, &ExpenseSummary{
		TotalPersonal:     150,
		TotalProfessional: 350,
		BudgetUsedPercent: 50,
		HighestCategory:   "Travel",
	}, summary)

	periods, err := svc.OverTime(ctx, owner, utils.DateRange{}, utils.TimeFrameMonthly)
	require.NoError(t, err)
	assert.Equal(t, []ExpensePeriod{
		{Period: "2024-01", Personal: 100, Professional: 300},
		{Period: "2024-02", Personal: 50, Professional: 50},
	}, periods)

	categories, err := svc.Categories(ctx, owner, utils.DateRange{Start: feb})
	require.NoError(t, err)
	assert.Equal(t, []CategoryTotal{{Name: "Equipment", Value: 50}, {Name: "Food", Value: 50}}, categories)

	recent, err := svc.Transactions(ctx, owner, TransactionQuery{SortBy: "amount", Order: "asc", Type: models.ExpenseTypePersonal})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 50.0, recent[0].Amount)

	recent, err = svc.Transactions(ctx, owner, TransactionQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, feb.Equal(recent[0].Date))

	all, err := svc.List(ctx, owner, utils.DateRange{End: utils.EndOfDay(jan)})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExpenseService_UpdateDelete(t *testing.T) {
	database := setupLedgerDB(t, "ledger_expense_crud_test")
	svc := NewExpenseService(database, 0)
	ctx := context.Background()
	owner := primitive.NewObjectID()

	expense, err := svc.Create(ctx, owner, &ExpenseInput{Description: "Taxi", Category: "Travel", Amount: 12.5, Type: models.ExpenseTypeProfessional})
	require.NoError(t, err)
	assert.False(t, expense.Date.IsZero())

	updated, err := svc.Update(ctx, owner, expense.ID, &ExpenseInput{Description: "Train", Category: "Travel", Amount: 8, Type: models.ExpenseTypeProfessional})
	require.NoError(t, err)
	assert.Equal(t, "Train", updated.Description)
	assert.WithinDuration(t, expense.Date, updated.Date, time.Millisecond)

	_, err = svc.Update(ctx, primitive.NewObjectID(), expense.ID, &ExpenseInput{Description: "x", Category: "Food", Amount: 1, Type: models.ExpenseTypePersonal})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	require.NoError(t, svc.Delete(ctx, owner, expense.ID))
	_, err = svc.Get(ctx, owner, expense.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
