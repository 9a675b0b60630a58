package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

// PartyBalance is the outstanding balance of every bill matching a party name.
// Found is false when no bill matched, which is distinct from a zero balance.
type PartyBalance struct {
	Found        bool
	TotalBalance float64
	LatestBill   *models.Bill
	MatchedNames []string
}

// IBalanceService computes cumulative party balances.
type IBalanceService interface {
	ComputePartyBalance(ctx context.Context, owner primitive.ObjectID, partyName string, exact bool) (*PartyBalance, error)
}

type balanceService struct {
	bills *mongo.Collection
}

func NewBalanceService(database *mongo.Database) IBalanceService {
	return &balanceService{bills: database.Collection(models.CollectionBills)}
}

// partyNamePattern builds the case-insensitive party name regex. Exact
// anchors the whole name, otherwise any substring matches.
func partyNamePattern(partyName string, exact bool) (primitive.Regex, error) {
	normalized := strings.ToLower(strings.TrimSpace(partyName))
	if normalized == "" {
		return primitive.Regex{}, apperrors.Validation("Party name is required",
			apperrors.FieldError{Field: "partyName", Message: "is required"})
	}
	pattern := utils.EscapeRegex(normalized)
	if exact {
		pattern = "^" + pattern + "$"
	}
	return primitive.Regex{Pattern: pattern, Options: "i"}, nil
}

func (s *balanceService) ComputePartyBalance(ctx context.Context, owner primitive.ObjectID, partyName string, exact bool) (*PartyBalance, error) {
	pattern, err := partyNamePattern(partyName, exact)
	if err != nil {
		return nil, err
	}
	match := bson.M{"created_by": owner, "party_name": pattern}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.bills.Find(ctx, match, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find party bills: %w", err)
	}
	var bills []models.Bill
	if err := cursor.All(ctx, &bills); err != nil {
		return nil, fmt.Errorf("failed to decode party bills: %w", err)
	}
	if len(bills) == 0 {
		return &PartyBalance{Found: false, MatchedNames: []string{}}, nil
	}

	unpaid := bson.M{"created_by": owner, "party_name": pattern, "status": bson.M{"$ne": models.BillStatusPaid}}
	agg, err := s.bills.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: unpaid}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$balance"}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate party balance: %w", err)
	}
	var sums []sumResult
	if err := agg.All(ctx, &sums); err != nil {
		return nil, fmt.Errorf("failed to decode party balance: %w", err)
	}

	result := &PartyBalance{Found: true, LatestBill: &bills[0], MatchedNames: matchedPartyNames(bills)}
	if len(sums) > 0 {
		result.TotalBalance = sums[0].Total
	}
	return result, nil
}

// matchedPartyNames lists the distinct names of bills in the order given.
func matchedPartyNames(bills []models.Bill) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, b := range bills {
		if !seen[b.PartyName] {
			seen[b.PartyName] = true
			names = append(names, b.PartyName)
		}
	}
	return names
}
