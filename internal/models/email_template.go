package models

// Template ids known to the mailer.
const (
	TemplatePasswordReset = "password_reset"
	TemplateWelcome       = "welcome"
)

// EmailTemplate defines the structure for email templates stored in the DB.
// Subject and Body are text/template sources.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"template_id" json:"templateId"`
	Locale     string `bson:"locale" json:"locale"`
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"`
}
