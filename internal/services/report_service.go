package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/storage"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

// ReportMode selects how expenses are grouped.
type ReportMode string

const (
	ReportByCategory ReportMode = "category"
	ReportMonthly    ReportMode = "monthly"
	ReportYearly     ReportMode = "yearly"
)

const (
	minReportYear     = 2000
	maxReportYearSkew = 5
)

// NoReportDataMessage is returned when the range holds no expenses.
const NoReportDataMessage = "No transactions found in the selected date range"

// ReportRequest is a validated report query. End is extended to the last instant of its day.
type ReportRequest struct {
	Start time.Time
	End   time.Time
	Mode  ReportMode
}

type ReportGroup struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
}

type ReportMeta struct {
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate"`
	ReportType ReportMode `json:"reportType"`
	Count      int        `json:"count"`
}

type Report struct {
	Groups []ReportGroup
	Meta   ReportMeta
}

type ReportExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ParseReportRequest validates raw query values. Years outside [2000, now+5] are rejected.
func ParseReportRequest(start, end, mode string, now time.Time) (*ReportRequest, error) {
	if start == "" || end == "" || mode == "" {
		return nil, apperrors.Validation("Missing required parameters: startDate, endDate, type")
	}
	switch ReportMode(mode) {
	case ReportByCategory, ReportMonthly, ReportYearly:
	default:
		return nil, apperrors.Validation("Invalid report type. Valid values: category, monthly, yearly",
			apperrors.FieldError{Field: "type", Message: "must be one of category, monthly, yearly"})
	}

	parse := func(field, value string) (time.Time, *apperrors.FieldError) {
		t, err := utils.ParseDate(value)
		if err != nil {
			return t, &apperrors.FieldError{Field: field, Message: "must be a YYYY-MM-DD date"}
		}
		return t, checkReportYear(field, t, now)
	}

	var fields []apperrors.FieldError
	startAt, fe := parse("startDate", start)
	if fe != nil {
		fields = append(fields, *fe)
	}
	endAt, fe := parse("endDate", end)
	if fe != nil {
		fields = append(fields, *fe)
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("Invalid date format. Use ISO format (YYYY-MM-DD)", fields...)
	}
	if startAt.After(endAt) {
		return nil, apperrors.Validation("Start date must be before end date")
	}

	return &ReportRequest{Start: startAt, End: utils.EndOfDay(endAt), Mode: ReportMode(mode)}, nil
}

func checkReportYear(field string, t, now time.Time) *apperrors.FieldError {
	maxYear := now.Year() + maxReportYearSkew
	if t.Year() < minReportYear || t.Year() > maxYear {
		return &apperrors.FieldError{Field: field, Message: fmt.Sprintf("year must be between %d and %d", minReportYear, maxYear)}
	}
	return nil
}

// CheckStatsRange applies the report year limits to a stats window so the
// per-period series stays bounded.
func CheckStatsRange(start, end, now time.Time) error {
	var fields []apperrors.FieldError
	if fe := checkReportYear("startDate", start, now); fe != nil {
		fields = append(fields, *fe)
	}
	if fe := checkReportYear("endDate", end, now); fe != nil {
		fields = append(fields, *fe)
	}
	if len(fields) > 0 {
		return apperrors.Validation("Date range out of bounds", fields...)
	}
	return nil
}

type IReportService interface {
	GenerateReport(ctx context.Context, owner primitive.ObjectID, req *ReportRequest) (*Report, error)
	// Export renders the report as CSV, stores it and returns a presigned download URL.
	Export(ctx context.Context, owner primitive.ObjectID, req *ReportRequest) (*ReportExport, error)
}

type reportService struct {
	expenses *mongo.Collection
	storage  storage.IObjectStorage
	urlTTL   time.Duration
	logger   *zap.Logger
}

// NewReportService returns the report service. A nil objectStorage makes Export fail with a dependency error.
func NewReportService(database *mongo.Database, objectStorage storage.IObjectStorage, urlTTL time.Duration, logger *zap.Logger) IReportService {
	return &reportService{
		expenses: database.Collection(models.CollectionExpenses),
		storage:  objectStorage,
		urlTTL:   urlTTL,
		logger:   logger,
	}
}

func reportPipeline(owner primitive.ObjectID, req *ReportRequest) mongo.Pipeline {
	filter := ownerFilter(owner)
	filter["date"] = bson.M{"$gte": req.Start, "$lte": req.End}

	var key interface{}
	sortStage := bson.D{{Key: "_id", Value: 1}}
	switch req.Mode {
	case ReportByCategory:
		key = "$category"
		sortStage = bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}
	case ReportMonthly:
		key = bson.M{"$dateToString": bson.M{"format": utils.TimeFrameMonthly.MongoFormat(), "date": "$date"}}
	default:
		key = bson.M{"$dateToString": bson.M{"format": utils.TimeFrameYearly.MongoFormat(), "date": "$date"}}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": key, "total": bson.M{"$sum": "$amount"}}}},
		{{Key: "$sort", Value: sortStage}},
	}
}

func (s *reportService) GenerateReport(ctx context.Context, owner primitive.ObjectID, req *ReportRequest) (*Report, error) {
	cursor, err := s.expenses.Aggregate(ctx, reportPipeline(owner, req))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate report: %w", err)
	}
	var rows []keyedTotal
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NoData(NoReportDataMessage)
	}

	groups := make([]ReportGroup, len(rows))
	for i, row := range rows {
		groups[i] = ReportGroup{Key: row.Key, Total: row.Total}
	}
	return &Report{
		Groups: groups,
		Meta: ReportMeta{
			StartDate:  req.Start.Format(utils.DateLayout),
			EndDate:    req.End.Format(utils.DateLayout),
			ReportType: req.Mode,
			Count:      len(groups),
		},
	}, nil
}

func (s *reportService) Export(ctx context.Context, owner primitive.ObjectID, req *ReportRequest) (*ReportExport, error) {
	if s.storage == nil {
		return nil, apperrors.Dependency("Report storage is not configured", nil)
	}
	report, err := s.GenerateReport(ctx, owner, req)
	if err != nil {
		return nil, err
	}
	body, err := encodeReportCSV(report.Groups)
	if err != nil {
		return nil, err
	}

	key := storage.ReportKey(owner.Hex(), "csv")
	if err := s.storage.PutObject(ctx, key, "text/csv", body); err != nil {
		return nil, apperrors.Dependency("Failed to upload report", err)
	}
	url, err := s.storage.PresignGetURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, apperrors.Dependency("Failed to sign report URL", err)
	}

	s.logger.Info("Report exported",
		zap.String("owner", owner.Hex()),
		zap.String("key", key),
		zap.String("mode", string(req.Mode)),
		zap.Int("groups", len(report.Groups)),
	)
	return &ReportExport{Key: key, URL: url, ExpiresAt: time.Now().UTC().Add(s.urlTTL)}, nil
}

func encodeReportCSV(groups []ReportGroup) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"key", "total"}); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for _, g := range groups {
		if err := w.Write([]string{g.Key, strconv.FormatFloat(g.Total, 'f', 2, 64)}); err != nil {
			return nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush report: %w", err)
	}
	return buf.Bytes(), nil
}
