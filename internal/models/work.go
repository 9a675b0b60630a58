package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saif-ali01/projectXAPI/internal/utils"
)

const (
	// CurrencyINR is the only supported currency for works.
	CurrencyINR = "INR"

	// WorkEarningSource tags earnings mirroring a paid work.
	WorkEarningSource = "Work"
)

// Work is a single billable job for a client.
type Work struct {
	Base        `bson:",inline"`
	Particulars string             `bson:"particulars" json:"particulars"`
	Type        string             `bson:"type" json:"type"`
	Size        string             `bson:"size" json:"size"`
	Party       string             `bson:"party" json:"party"`
	PartyID     primitive.ObjectID `bson:"party_id" json:"partyId"`
	DateAndTime time.Time          `bson:"date_and_time" json:"dateAndTime"`
	Quantity    float64            `bson:"quantity" json:"quantity"`
	Rate        float64            `bson:"rate" json:"rate"`
	Currency    string             `bson:"currency" json:"currency"`
	Paid        bool               `bson:"paid" json:"paid"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"createdBy"`
	Timestamps  `bson:",inline"`
}

// Amount is quantity times rate.
func (w *Work) Amount() float64 {
	return utils.MulMoney(w.Quantity, w.Rate)
}
