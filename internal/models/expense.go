package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ExpenseTypePersonal     = "Personal"
	ExpenseTypeProfessional = "Professional"
)

// Expense is money spent, independent of bills and earnings.
type Expense struct {
	Base        `bson:",inline"`
	Date        time.Time          `bson:"date" json:"date"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"` // Food, Travel, Equipment, Other
	Amount      float64            `bson:"amount" json:"amount"`
	Type        string             `bson:"type" json:"type"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"-"`
	Timestamps  `bson:",inline"`
}
