package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Party is an address-book entry for bill recipients.
type Party struct {
	Base       `bson:",inline"`
	Name       string             `bson:"name" json:"name"`
	Contact    string             `bson:"contact" json:"contact"`
	Address    string             `bson:"address" json:"address"`
	CreatedBy  primitive.ObjectID `bson:"created_by" json:"-"`
	Timestamps `bson:",inline"`
}
