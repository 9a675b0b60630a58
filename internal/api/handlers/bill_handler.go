package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/services"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

const defaultStatsWindow = 30 * 24 * time.Hour

// BillHandler handles REST requests related to bills.
type BillHandler struct {
	billService    services.IBillService
	balanceService services.IBalanceService
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(billService services.IBillService, balanceService services.IBalanceService) *BillHandler {
	return &BillHandler{billService: billService, balanceService: balanceService}
}

// PartyBalanceResponse is the latest bill of a party with the cumulative balance in place of its own.
type PartyBalanceResponse struct {
	models.Bill
	MatchedPartyNames []string `json:"matchedPartyNames"`
}

// PartyBalanceNotFound is the 404 body of the balance lookup.
type PartyBalanceNotFound struct {
	Message           string   `json:"message"`
	PartyName         string   `json:"partyName"`
	Balance           float64  `json:"balance"`
	MatchedPartyNames []string `json:"matchedPartyNames"`
}

// Create handles POST /api/bills
func (h *BillHandler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var in services.BillInput
	if !bindJSON(c, &in) {
		return
	}
	bill, err := h.billService.Create(c.Request.Context(), ownerID, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

// List handles GET /api/bills
func (h *BillHandler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	list, err := h.billService.List(c.Request.Context(), ownerID, services.BillListQuery{
		PageRequest: pageRequest(c),
		SortBy:      c.Query("sortBy"),
		Search:      c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetByID handles GET /api/bills/id/:id
func (h *BillHandler) GetByID(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Bill")
	if !ok {
		return
	}
	bill, err := h.billService.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// GetBySerial handles GET /api/bills/serial/:serialNumber
func (h *BillHandler) GetBySerial(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	serial, err := strconv.ParseInt(c.Param("serialNumber"), 10, 64)
	if err != nil || serial < 1 {
		respondError(c, apperrors.Validation("Invalid serial number"))
		return
	}
	bill, err := h.billService.GetBySerial(c.Request.Context(), ownerID, serial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// PartyBalance handles GET /api/bills/party/:partyName
func (h *BillHandler) PartyBalance(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	partyName := c.Param("partyName")
	exact := c.Query("exact") == "true"

	balance, err := h.balanceService.ComputePartyBalance(c.Request.Context(), ownerID, partyName, exact)
	if err != nil {
		respondError(c, err)
		return
	}
	if !balance.Found {
		c.JSON(http.StatusNotFound, PartyBalanceNotFound{
			Message:           fmt.Sprintf("No bills found for party %q", partyName),
			PartyName:         partyName,
			Balance:           0,
			MatchedPartyNames: []string{},
		})
		return
	}

	resp := PartyBalanceResponse{Bill: *balance.LatestBill, MatchedPartyNames: balance.MatchedNames}
	resp.Balance = balance.TotalBalance
	c.JSON(http.StatusOK, resp)
}

// Update handles PUT /api/bills/id/:id
func (h *BillHandler) Update(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Bill")
	if !ok {
		return
	}
	var in services.BillInput
	if !bindJSON(c, &in) {
		return
	}
	bill, err := h.billService.Update(c.Request.Context(), ownerID, id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// Delete handles DELETE /api/bills/id/:id
func (h *BillHandler) Delete(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Bill")
	if !ok {
		return
	}
	if err := h.billService.Delete(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Bill deleted successfully"})
}

// Stats handles GET /api/bills/stats
func (h *BillHandler) Stats(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	r, ok := dateRange(c)
	if !ok {
		return
	}
	tf, ok := timeFrame(c, utils.TimeFrameDaily)
	if !ok {
		return
	}
	now := time.Now().UTC()
	if r.End.IsZero() {
		r.End = utils.EndOfDay(now)
	}
	if r.Start.IsZero() {
		r.Start = utils.StartOfDay(r.End.Add(-defaultStatsWindow))
	}
	if err := services.CheckStatsRange(r.Start, r.End, now); err != nil {
		respondError(c, err)
		return
	}

	points, err := h.billService.Stats(c.Request.Context(), ownerID, r.Start, r.End, tf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// PartyNames handles GET /api/bills/parties
func (h *BillHandler) PartyNames(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	names, err := h.billService.PartyNames(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}
