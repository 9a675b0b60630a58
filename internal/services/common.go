package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PageRequest is a 1-based page request.
type PageRequest struct {
	Page  int64
	Limit int64
}

// normalize clamps the request to sane bounds.
func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p PageRequest) skip() int64 {
	return (p.Page - 1) * p.Limit
}

func totalPages(count, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(count) / float64(limit)))
}

// ParseID turns a hex id into an ObjectID, rejecting malformed input as a ValidationError.
func ParseID(entity, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("Invalid " + strings.ToLower(entity) + " ID")
	}
	return oid, nil
}

func ownerFilter(owner primitive.ObjectID) bson.M {
	return bson.M{"created_by": owner}
}

func ownedByID(owner, id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "created_by": owner}
}

// withDateRange adds r to filter on field. Open bounds are left out.
func withDateRange(filter bson.M, field string, r utils.DateRange) bson.M {
	if r.IsZero() {
		return filter
	}
	cond := bson.M{}
	if !r.Start.IsZero() {
		cond["$gte"] = r.Start
	}
	if !r.End.IsZero() {
		cond["$lte"] = r.End
	}
	filter[field] = cond
	return filter
}

// containsPattern is a case-insensitive substring match on user input.
func containsPattern(text string) primitive.Regex {
	return primitive.Regex{Pattern: utils.EscapeRegex(text), Options: "i"}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// sumResult decodes a {_id: null, total: {$sum: ...}} aggregation.
type sumResult struct {
	Total float64 `bson:"total"`
}

// keyedTotal decodes a {_id: <key>, total: {$sum: ...}} aggregation row.
type keyedTotal struct {
	Key   string  `bson:"_id"`
	Total float64 `bson:"total"`
}

// sumField totals field over the documents of coll matching filter. No match sums to 0.
func sumField(ctx context.Context, coll *mongo.Collection, filter bson.M, field string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$" + field}}}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s.%s: %w", coll.Name(), field, err)
	}
	var rows []sumResult
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode %s.%s sum: %w", coll.Name(), field, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
