package models

// Role is the access level carried in the JWT.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account that owns bills, works, clients, expenses and earnings.
type User struct {
	Base         `bson:",inline"`
	Name         string `bson:"name" json:"name"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"password,omitempty" json:"-"`
	Role         Role   `bson:"role" json:"role"`
	IsGoogleUser bool   `bson:"is_google_user" json:"isGoogleUser"`
	GoogleID     string `bson:"google_id,omitempty" json:"-"`
	Timestamps   `bson:",inline"`
}
