package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EarningType classifies income.
type EarningType string

const (
	EarningTypeSales      EarningType = "Sales"
	EarningTypeInvestment EarningType = "Investment"
	EarningTypeOther      EarningType = "Other"
)

// Earning is an income record. Source and Reference identify the bill or work
// it mirrors; Reference is a lookup key only and may dangle.
type Earning struct {
	Base      `bson:",inline"`
	Date      time.Time           `bson:"date" json:"date"`
	Amount    float64             `bson:"amount" json:"amount"`
	Type      EarningType         `bson:"type" json:"type"`
	Source    string              `bson:"source,omitempty" json:"source,omitempty"`
	Reference *primitive.ObjectID `bson:"reference,omitempty" json:"reference,omitempty"`
	CreatedBy primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
}
