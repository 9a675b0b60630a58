package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/models"
)

// DefaultLocale is used when a message carries no locale.
const DefaultLocale = "en"

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	models.TemplatePasswordReset: {
		TemplateID: models.TemplatePasswordReset,
		Locale:     DefaultLocale,
		Subject:    "Reset your {{.app_name}} password",
		Body: "Hi {{.name}},\n\n" +
			"We received a request to reset your password. Open the link below to choose a new one:\n\n" +
			"{{.reset_url}}\n\n" +
			"The link expires in {{.expires_in}}. If you did not ask for this, ignore this email.\n",
	},
	models.TemplateWelcome: {
		TemplateID: models.TemplateWelcome,
		Locale:     DefaultLocale,
		Subject:    "Welcome to {{.app_name}}",
		Body:       "Hi {{.name}},\n\nYour account is ready. Sign in at {{.login_url}}\n",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error
}

// EmailTemplateService reads templates from the database, falling back to built-in defaults.
type EmailTemplateService struct {
	collection *mongo.Collection
}

func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{collection: db.Collection(models.CollectionEmailTemplates)}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}

	var tmpl models.EmailTemplate
	err := s.collection.FindOne(ctx, bson.M{"template_id": templateID, "locale": locale}).Decode(&tmpl)
	if err == nil {
		return &tmpl, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	if def, ok := defaultEmailTemplates[templateID]; ok {
		return &def, nil
	}
	return nil, apperrors.NotFound("Email template " + templateID)
}

// SaveTemplate upserts a template by (template_id, locale).
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	if _, _, err := RenderTemplate(tmpl, nil); err != nil {
		return apperrors.Validation("Invalid template", apperrors.FieldError{Field: "body", Message: err.Error()})
	}
	tmpl.GenIDIfEmpty()

	filter := bson.M{"template_id": tmpl.TemplateID, "locale": tmpl.Locale}
	update := bson.M{"$set": bson.M{"subject": tmpl.Subject, "body": tmpl.Body}, "$setOnInsert": bson.M{"_id": tmpl.ID}}
	if _, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// RenderTemplate executes the subject and body of tmpl against data.
func RenderTemplate(tmpl *models.EmailTemplate, data map[string]interface{}) (string, string, error) {
	subject, err := renderText("subject", tmpl.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err := renderText("body", tmpl.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func renderText(name, text string, data map[string]interface{}) (string, error) {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}
