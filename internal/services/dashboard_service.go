package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/cache"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

const (
	revenueTrendMonths = 6
	trendLabelLayout   = "Jan 06"
)

type DashboardSummary struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalExpenses   float64 `json:"totalExpenses"`
	PendingInvoices int64   `json:"pendingInvoices"`
	ActiveClients   int64   `json:"activeClients"`
}

type RevenuePoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// SummaryCache is the part of cache.JSONCache the dashboard uses.
type SummaryCache interface {
	Get(ctx context.Context, k string, dest interface{}) error
	Set(ctx context.Context, k string, value interface{}) error
}

type IDashboardService interface {
	Summary(ctx context.Context, owner primitive.ObjectID) (*DashboardSummary, error)
	RevenueTrend(ctx context.Context, owner primitive.ObjectID, now time.Time) ([]RevenuePoint, error)
}

type dashboardService struct {
	bills    *mongo.Collection
	earnings *mongo.Collection
	expenses *mongo.Collection
	cache    SummaryCache
	logger   *zap.Logger
}

// NewDashboardService returns the dashboard service. A nil summaryCache disables caching.
func NewDashboardService(database *mongo.Database, summaryCache SummaryCache, logger *zap.Logger) IDashboardService {
	return &dashboardService{
		bills:    database.Collection(models.CollectionBills),
		earnings: database.Collection(models.CollectionEarnings),
		expenses: database.Collection(models.CollectionExpenses),
		cache:    summaryCache,
		logger:   logger,
	}
}

func (s *dashboardService) Summary(ctx context.Context, owner primitive.ObjectID) (*DashboardSummary, error) {
	key := owner.Hex()
	if s.cache != nil {
		var cached DashboardSummary
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Dashboard cache read failed", zap.String("owner", key), zap.Error(err))
		}
	}

	summary, err := s.computeSummary(ctx, owner)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary); err != nil {
			s.logger.Warn("Dashboard cache write failed", zap.String("owner", key), zap.Error(err))
		}
	}
	return summary, nil
}

func (s *dashboardService) computeSummary(ctx context.Context, owner primitive.ObjectID) (*DashboardSummary, error) {
	var (
		summary DashboardSummary
		err     error
	)
	if summary.TotalRevenue, err = sumField(ctx, s.earnings, ownerFilter(owner), "amount"); err != nil {
		return nil, err
	}
	if summary.TotalExpenses, err = sumField(ctx, s.expenses, ownerFilter(owner), "amount"); err != nil {
		return nil, err
	}

	pending := ownerFilter(owner)
	pending["status"] = bson.M{"$in": bson.A{models.BillStatusPending, models.BillStatusDue}}
	if summary.PendingInvoices, err = s.bills.CountDocuments(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to count pending bills: %w", err)
	}

	parties, err := s.bills.Distinct(ctx, "party_name", ownerFilter(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to count active clients: %w", err)
	}
	summary.ActiveClients = int64(len(parties))
	return &summary, nil
}

// RevenueTrend totals earnings per calendar month (UTC) for the six months ending with now's month.
func (s *dashboardService) RevenueTrend(ctx context.Context, owner primitive.ObjectID, now time.Time) ([]RevenuePoint, error) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month()-(revenueTrendMonths-1), 1, 0, 0, 0, 0, time.UTC)

	filter := ownerFilter(owner)
	filter["date"] = bson.M{"$gte": start, "$lte": now}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": utils.TimeFrameMonthly.MongoFormat(), "date": "$date"}},
			"total": bson.M{"$sum": "$amount"},
		}}},
	}
	cursor, err := s.earnings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue trend: %w", err)
	}
	var rows []keyedTotal
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode revenue trend: %w", err)
	}
	byMonth := make(map[string]float64, len(rows))
	for _, row := range rows {
		byMonth[row.Key] = row.Total
	}

	months := utils.TimeFrameMonthly.Periods(start, now)
	points := make([]RevenuePoint, len(months))
	for i, month := range months {
		label := month
		if t, err := time.Parse("2006-01", month); err == nil {
			label = t.Format(trendLabelLayout)
		}
		points[i] = RevenuePoint{Month: label, Revenue: byMonth[month]}
	}
	return points, nil
}
