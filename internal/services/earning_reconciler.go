package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/db"
	"github.com/saif-ali01/projectXAPI/internal/models"
)

// SourceDescriptor identifies the bill or work an Earning mirrors.
type SourceDescriptor struct {
	Tag       string
	Reference primitive.ObjectID
}

func (d SourceDescriptor) filter() bson.M {
	return bson.M{"source": d.Tag, "reference": d.Reference}
}

// PaidState is the part of a source record that decides its Earning.
type PaidState struct {
	Paid   bool
	Amount float64
	Date   time.Time
}

type earningAction int

const (
	earningNoop earningAction = iota
	earningInsert
	earningDelete
	earningUpdate
)

func (a earningAction) String() string {
	switch a {
	case earningInsert:
		return "insert"
	case earningDelete:
		return "delete"
	case earningUpdate:
		return "update"
	default:
		return "noop"
	}
}

func planEarningAction(before, after PaidState) earningAction {
	switch {
	case !before.Paid && after.Paid:
		return earningInsert
	case before.Paid && !after.Paid:
		return earningDelete
	case before.Paid && after.Paid:
		return earningUpdate
	default:
		return earningNoop
	}
}

// IEarningReconciler keeps exactly one Earning per paid bill or work, carrying its current amount.
type IEarningReconciler interface {
	// Reconcile applies the before to after transition. Call it with the
	// transaction context of the source record's own write.
	Reconcile(ctx context.Context, owner primitive.ObjectID, source SourceDescriptor, before, after PaidState) error
}

type earningReconciler struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewEarningReconciler(database *mongo.Database, logger *zap.Logger) IEarningReconciler {
	return &earningReconciler{
		collection: database.Collection(models.CollectionEarnings),
		logger:     logger.Named("reconciler"),
	}
}

func (r *earningReconciler) Reconcile(ctx context.Context, owner primitive.ObjectID, source SourceDescriptor, before, after PaidState) error {
	action := planEarningAction(before, after)
	if action != earningNoop {
		r.logger.Debug("Reconciling earning",
			zap.String("source", source.Tag),
			zap.String("reference", source.Reference.Hex()),
			zap.Stringer("action", action),
		)
	}

	switch action {
	case earningInsert:
		return r.insert(ctx, owner, source, after)
	case earningDelete:
		if _, err := r.collection.DeleteOne(ctx, source.filter()); err != nil {
			return fmt.Errorf("failed to delete earning for %s: %w", source.Tag, err)
		}
		return nil
	case earningUpdate:
		res, err := r.collection.UpdateOne(ctx, source.filter(), bson.M{"$set": bson.M{
			"amount": after.Amount,
			"date":   after.Date,
		}})
		if err != nil {
			return fmt.Errorf("failed to update earning for %s: %w", source.Tag, err)
		}
		if res.MatchedCount == 0 {
			r.logger.Warn("Paid source had no earning, recreating it",
				zap.String("source", source.Tag),
				zap.String("reference", source.Reference.Hex()),
			)
			return r.insert(ctx, owner, source, after)
		}
		return nil
	}
	return nil
}

func (r *earningReconciler) insert(ctx context.Context, owner primitive.ObjectID, source SourceDescriptor, state PaidState) error {
	count, err := r.collection.CountDocuments(ctx, source.filter())
	if err != nil {
		return fmt.Errorf("failed to check earning for %s: %w", source.Tag, err)
	}
	if count > 0 {
		return apperrors.Conflict(fmt.Sprintf("An earning already exists for %s", source.Tag), nil)
	}

	ref := source.Reference
	earning := &models.Earning{
		Base:      models.NewBase(),
		Date:      state.Date,
		Amount:    state.Amount,
		Type:      models.EarningTypeSales,
		Source:    source.Tag,
		Reference: &ref,
		CreatedBy: owner,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, earning); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return apperrors.Conflict(fmt.Sprintf("An earning already exists for %s", source.Tag), err)
		}
		return fmt.Errorf("failed to insert earning for %s: %w", source.Tag, err)
	}
	return nil
}
