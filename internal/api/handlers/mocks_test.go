package handlers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saif-ali01/projectXAPI/internal/api/middleware"
	"github.com/saif-ali01/projectXAPI/internal/auth"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/services"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

// asOwner stands in for AuthMiddleware.
func asOwner(owner primitive.ObjectID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, owner)
		c.Next()
	}
}

// --- Mocks ---

type MockBillService struct {
	mock.Mock
}

func (m *MockBillService) Create(ctx context.Context, owner primitive.ObjectID, in *services.BillInput) (*models.Bill, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillService) List(ctx context.Context, owner primitive.ObjectID, q services.BillListQuery) (*services.BillList, error) {
	args := m.Called(ctx, owner, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BillList), args.Error(1)
}

func (m *MockBillService) GetByID(ctx context.Context, owner, id primitive.ObjectID) (*models.Bill, error) {
	args := m.Called(ctx, owner, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillService) GetBySerial(ctx context.Context, owner primitive.ObjectID, serial int64) (*models.Bill, error) {
	args := m.Called(ctx, owner, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillService) Update(ctx context.Context, owner, id primitive.ObjectID, in *services.BillInput) (*models.Bill, error) {
	args := m.Called(ctx, owner, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	return m.Called(ctx, owner, id).Error(0)
}

func (m *MockBillService) Stats(ctx context.Context, owner primitive.ObjectID, start, end time.Time, tf utils.TimeFrame) ([]services.BillStatPoint, error) {
	args := m.Called(ctx, owner, start, end, tf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.BillStatPoint), args.Error(1)
}

func (m *MockBillService) PartyNames(ctx context.Context, owner primitive.ObjectID) ([]string, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockBalanceService struct {
	mock.Mock
}

func (m *MockBalanceService) ComputePartyBalance(ctx context.Context, owner primitive.ObjectID, partyName string, exact bool) (*services.PartyBalance, error) {
	args := m.Called(ctx, owner, partyName, exact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PartyBalance), args.Error(1)
}

type MockWorkService struct {
	mock.Mock
}

func (m *MockWorkService) Create(ctx context.Context, owner primitive.ObjectID, in *services.WorkInput) (*models.Work, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Work), args.Error(1)
}

func (m *MockWorkService) List(ctx context.Context, owner primitive.ObjectID, q services.WorkListQuery) (*services.WorkList, error) {
	args := m.Called(ctx, owner, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.WorkList), args.Error(1)
}

func (m *MockWorkService) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Work, error) {
	args := m.Called(ctx, owner, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Work), args.Error(1)
}

func (m *MockWorkService) Update(ctx context.Context, owner, id primitive.ObjectID, patch *services.WorkPatch) (*models.Work, error) {
	args := m.Called(ctx, owner, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Work), args.Error(1)
}

func (m *MockWorkService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	return m.Called(ctx, owner, id).Error(0)
}

type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) Create(ctx context.Context, owner primitive.ObjectID, in *services.ClientInput) (*models.Client, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) List(ctx context.Context, owner primitive.ObjectID, q services.ClientListQuery) (*services.ClientList, error) {
	args := m.Called(ctx, owner, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ClientList), args.Error(1)
}

func (m *MockClientService) Update(ctx context.Context, owner, id primitive.ObjectID, in *services.ClientInput) (*models.Client, error) {
	args := m.Called(ctx, owner, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	return m.Called(ctx, owner, id).Error(0)
}

type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) Create(ctx context.Context, owner primitive.ObjectID, in *services.ExpenseInput) (*models.Expense, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseService) List(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) ([]models.Expense, error) {
	args := m.Called(ctx, owner, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Expense), args.Error(1)
}

func (m *MockExpenseService) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Expense, error) {
	args := m.Called(ctx, owner, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseService) Update(ctx context.Context, owner, id primitive.ObjectID, in *services.ExpenseInput) (*models.Expense, error) {
	args := m.Called(ctx, owner, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	return m.Called(ctx, owner, id).Error(0)
}

func (m *MockExpenseService) Summary(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) (*services.ExpenseSummary, error) {
	args := m.Called(ctx, owner, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExpenseSummary), args.Error(1)
}

func (m *MockExpenseService) OverTime(ctx context.Context, owner primitive.ObjectID, r utils.DateRange, tf utils.TimeFrame) ([]services.ExpensePeriod, error) {
	args := m.Called(ctx, owner, r, tf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.ExpensePeriod), args.Error(1)
}

func (m *MockExpenseService) Categories(ctx context.Context, owner primitive.ObjectID, r utils.DateRange) ([]services.CategoryTotal, error) {
	args := m.Called(ctx, owner, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.CategoryTotal), args.Error(1)
}

func (m *MockExpenseService) Transactions(ctx context.Context, owner primitive.ObjectID, q services.TransactionQuery) ([]models.Expense, error) {
	args := m.Called(ctx, owner, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Expense), args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Summary(ctx context.Context, owner primitive.ObjectID) (*services.DashboardSummary, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DashboardSummary), args.Error(1)
}

func (m *MockDashboardService) RevenueTrend(ctx context.Context, owner primitive.ObjectID, now time.Time) ([]services.RevenuePoint, error) {
	args := m.Called(ctx, owner, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.RevenuePoint), args.Error(1)
}

type MockBudgetService struct {
	mock.Mock
}

func (m *MockBudgetService) Compute(ctx context.Context, owner primitive.ObjectID, date time.Time) (*services.Budget, error) {
	args := m.Called(ctx, owner, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Budget), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) GenerateReport(ctx context.Context, owner primitive.ObjectID, req *services.ReportRequest) (*services.Report, error) {
	args := m.Called(ctx, owner, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Report), args.Error(1)
}

func (m *MockReportService) Export(ctx context.Context, owner primitive.ObjectID, req *services.ReportRequest) (*services.ReportExport, error) {
	args := m.Called(ctx, owner, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReportExport), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, in *services.SignupInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, in *services.LoginInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserService) ResetPassword(ctx context.Context, in *services.ResetPasswordInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockUserService) GoogleLogin(ctx context.Context, profile *auth.GoogleProfile) (string, error) {
	args := m.Called(ctx, profile)
	return args.String(0), args.Error(1)
}

type MockGoogleAuthenticator struct {
	mock.Mock
}

func (m *MockGoogleAuthenticator) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockGoogleAuthenticator) Exchange(ctx context.Context, code string) (*auth.GoogleProfile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.GoogleProfile), args.Error(1)
}

type MockPartyService struct {
	mock.Mock
}

func (m *MockPartyService) List(ctx context.Context, owner primitive.ObjectID) ([]models.Party, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Party), args.Error(1)
}

func (m *MockPartyService) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Party, error) {
	args := m.Called(ctx, owner, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Party), args.Error(1)
}

func (m *MockPartyService) Create(ctx context.Context, owner primitive.ObjectID, in *services.PartyInput) (*models.Party, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Party), args.Error(1)
}

func (m *MockPartyService) Update(ctx context.Context, owner, id primitive.ObjectID, in *services.PartyInput) (*models.Party, error) {
	args := m.Called(ctx, owner, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Party), args.Error(1)
}

func (m *MockPartyService) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	return m.Called(ctx, owner, id).Error(0)
}

type MockEarningService struct {
	mock.Mock
}

func (m *MockEarningService) List(ctx context.Context, owner primitive.ObjectID, q services.EarningListQuery) ([]models.Earning, error) {
	args := m.Called(ctx, owner, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Earning), args.Error(1)
}

func (m *MockEarningService) Create(ctx context.Context, owner primitive.ObjectID, in *services.EarningInput) (*models.Earning, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Earning), args.Error(1)
}

type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	return m.Called(ctx, tmpl).Error(0)
}
