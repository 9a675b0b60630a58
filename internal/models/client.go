package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Client is a customer a work can be billed to. Email is unique per owner.
type Client struct {
	Base       `bson:",inline"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone" json:"phone"`
	CreatedBy  primitive.ObjectID `bson:"created_by" json:"-"`
	Timestamps `bson:",inline"`
}
