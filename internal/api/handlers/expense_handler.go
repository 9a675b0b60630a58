package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/services"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

// ExpenseHandler serves expense CRUD and the expense analytics.
type ExpenseHandler struct {
	expenseService services.IExpenseService
}

func NewExpenseHandler(expenseService services.IExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// Create handles POST /api/expenses
func (h *ExpenseHandler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var in services.ExpenseInput
	if !bindJSON(c, &in) {
		return
	}
	expense, err := h.expenseService.Create(c.Request.Context(), ownerID, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

// List handles GET /api/expenses
func (h *ExpenseHandler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	r, ok := dateRange(c)
	if !ok {
		return
	}
	expenses, err := h.expenseService.List(c.Request.Context(), ownerID, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// Get handles GET /api/expenses/:id
func (h *ExpenseHandler) Get(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Expense")
	if !ok {
		return
	}
	expense, err := h.expenseService.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

// Update handles PUT /api/expenses/:id
func (h *ExpenseHandler) Update(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Expense")
	if !ok {
		return
	}
	var in services.ExpenseInput
	if !bindJSON(c, &in) {
		return
	}
	expense, err := h.expenseService.Update(c.Request.Context(), ownerID, id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

// Delete handles DELETE /api/expenses/:id
func (h *ExpenseHandler) Delete(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Expense")
	if !ok {
		return
	}
	if err := h.expenseService.Delete(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Expense deleted"})
}

// Summary handles GET /api/expenses/summary
func (h *ExpenseHandler) Summary(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	r, ok := dateRange(c)
	if !ok {
		return
	}
	summary, err := h.expenseService.Summary(c.Request.Context(), ownerID, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// OverTime handles GET /api/expenses/over-time
func (h *ExpenseHandler) OverTime(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	r, ok := dateRange(c)
	if !ok {
		return
	}
	tf, ok := timeFrame(c, utils.TimeFrameMonthly)
	if !ok {
		return
	}
	periods, err := h.expenseService.OverTime(c.Request.Context(), ownerID, r, tf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, periods)
}

// Categories handles GET /api/expenses/categories
func (h *ExpenseHandler) Categories(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	r, ok := dateRange(c)
	if !ok {
		return
	}
	categories, err := h.expenseService.Categories(c.Request.Context(), ownerID, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Transactions handles GET /api/expenses/transactions
func (h *ExpenseHandler) Transactions(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	r, ok := dateRange(c)
	if !ok {
		return
	}
	expenses, err := h.expenseService.Transactions(c.Request.Context(), ownerID, services.TransactionQuery{
		Range:    r,
		SortBy:   c.Query("sortBy"),
		Order:    c.Query("order"),
		Category: c.Query("category"),
		Type:     c.Query("type"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}
