package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	CollectionBills               = "bills"
	CollectionWorks               = "works"
	CollectionEarnings            = "earnings"
	CollectionExpenses            = "expenses"
	CollectionClients             = "clients"
	CollectionParties             = "parties"
	CollectionUsers               = "users"
	CollectionPasswordResetTokens = "password_reset_tokens"
	CollectionEmailTemplates      = "email_templates"
	CollectionOutbox              = "outbox"
)

type IBase interface {
	GenIDIfEmpty()
	GenID()
	SetID(id primitive.ObjectID)
}

type Base struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = primitive.NewObjectID()
}

func (m *Base) SetID(id primitive.ObjectID) {
	m.ID = id
}

func NewBase() Base {
	return Base{ID: primitive.NewObjectID()}
}

// Timestamps is embedded by documents that track creation and last update.
type Timestamps struct {
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Touch sets UpdatedAt, and CreatedAt on first save.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
