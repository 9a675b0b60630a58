package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saif-ali01/projectXAPI/internal/utils"
)

// BillStatus is the payment state of a bill.
type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusDue     BillStatus = "due"
	BillStatusPaid    BillStatus = "paid"
)

// BillRow is one line item. Total is supplied by the client and summed into Bill.Total.
type BillRow struct {
	ID          int     `bson:"id" json:"id"`
	Particulars string  `bson:"particulars" json:"particulars"`
	Type        string  `bson:"type" json:"type" validate:"omitempty,oneof=Book Pad Tag Register Other"`
	Size        string  `bson:"size" json:"size" validate:"omitempty,oneof=1/3 1/4 1/5 1/6 1/8 1/10 1/12 1/16 Other"`
	CustomType  string  `bson:"custom_type" json:"customType"`
	CustomSize  string  `bson:"custom_size" json:"customSize"`
	Quantity    float64 `bson:"quantity" json:"quantity" validate:"gte=0"`
	Rate        float64 `bson:"rate" json:"rate" validate:"gte=0"`
	Total       float64 `bson:"total" json:"total" validate:"gte=0"`
}

// Bill is an invoice issued to a party, identified to humans by SerialNumber.
type Bill struct {
	Base            `bson:",inline"`
	SerialNumber    int64              `bson:"serial_number" json:"serialNumber"`
	PartyName       string             `bson:"party_name" json:"partyName"`
	Date            time.Time          `bson:"date" json:"date"`
	Rows            []BillRow          `bson:"rows" json:"rows"`
	Total           float64            `bson:"total" json:"total"`
	Advance         float64            `bson:"advance" json:"advance"`
	PreviousBalance float64            `bson:"previous_balance" json:"previousBalance"`
	Due             float64            `bson:"due" json:"due"`
	Balance         float64            `bson:"balance" json:"balance"`
	Status          BillStatus         `bson:"status" json:"status"`
	Note            string             `bson:"note" json:"note"`
	CreatedBy       primitive.ObjectID `bson:"created_by" json:"createdBy"`
	Timestamps      `bson:",inline"`
}

// IsPaid reports whether the bill is settled.
func (b *Bill) IsPaid() bool {
	return b.Status == BillStatusPaid
}

// ApplyDerived recomputes Total from the rows, then Balance and Due from the
// status. A paid bill always carries zero balance and zero due.
func (b *Bill) ApplyDerived() {
	totals := make([]float64, len(b.Rows))
	for i, row := range b.Rows {
		totals[i] = row.Total
	}
	b.Total = utils.SumMoney(totals...)

	if b.IsPaid() {
		b.Balance = 0
		b.Due = 0
		return
	}
	b.Balance = utils.SubMoney(utils.SumMoney(b.Total, b.PreviousBalance), b.Advance)
}

// EarningSource is the descriptor tag of the Earning mirroring this bill.
func (b *Bill) EarningSource() string {
	return "Bill #" + strconv.FormatInt(b.SerialNumber, 10)
}
