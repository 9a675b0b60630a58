package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/auth"
	"github.com/saif-ali01/projectXAPI/internal/db"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/outbox"
	"github.com/saif-ali01/projectXAPI/internal/validation"
)

const invalidCredentials = "Invalid credentials"

type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// UserServiceConfig carries the settings that shape tokens and outgoing mail.
type UserServiceConfig struct {
	JwtSecret     string
	JwtTTL        time.Duration
	ResetTokenTTL time.Duration
	FrontendURL   string
	AppName       string
}

// IUserService covers accounts and sign-in.
type IUserService interface {
	Signup(ctx context.Context, in *SignupInput) (*models.User, error)
	Login(ctx context.Context, in *LoginInput) (string, error)
	Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in *ResetPasswordInput) error
	// GoogleLogin finds or creates the account behind a verified Google profile and issues a JWT.
	GoogleLogin(ctx context.Context, profile *auth.GoogleProfile) (string, error)
}

type userService struct {
	users     *mongo.Collection
	tokens    *mongo.Collection
	txManager db.TransactionManager
	outbox    outbox.Store
	cfg       UserServiceConfig
	logger    *zap.Logger
}

func NewUserService(database *mongo.Database, txManager db.TransactionManager, outboxStore outbox.Store, cfg UserServiceConfig, logger *zap.Logger) IUserService {
	return &userService{
		users:     database.Collection(models.CollectionUsers),
		tokens:    database.Collection(models.CollectionPasswordResetTokens),
		txManager: txManager,
		outbox:    outboxStore,
		cfg:       cfg,
		logger:    logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *userService) Signup(ctx context.Context, in *SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.findOne(ctx, bson.M{"email": in.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("Email already exists", nil)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Base:         models.NewBase(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	user.Touch(time.Now().UTC())

	_, err = s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		if _, err := s.users.InsertOne(sessCtx, user); err != nil {
			return nil, err
		}
		return nil, s.outbox.Create(sessCtx, models.TopicEmailDelivery, models.EmailDelivery{
			To:         user.Email,
			TemplateID: models.TemplateWelcome,
			Data: map[string]interface{}{
				"app_name":  s.cfg.AppName,
				"name":      user.Name,
				"login_url": strings.TrimRight(s.cfg.FrontendURL, "/") + "/login",
			},
		})
	})
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperrors.Conflict("Email already exists", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID.Hex()))
	return user, nil
}

func (s *userService) Login(ctx context.Context, in *LoginInput) (string, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return "", err
	}
	user, err := s.findOne(ctx, bson.M{"email": in.Email})
	if err != nil {
		return "", err
	}
	if user == nil || !auth.CheckPasswordHash(in.Password, user.PasswordHash) {
		return "", apperrors.Unauthorized(invalidCredentials)
	}
	return s.issueToken(user)
}

func (s *userService) issueToken(user *models.User) (string, error) {
	token, err := auth.GenerateJWT(user.ID, string(user.Role), s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

func (s *userService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.findOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

// ForgotPassword stores a reset token and queues the reset mail in the same transaction.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.Validation("Email is required", apperrors.FieldError{Field: "email", Message: "is required"})
	}
	user, err := s.findOne(ctx, bson.M{"email": email})
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NotFound("Email")
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	reset := &models.PasswordResetToken{
		Base:      models.NewBase(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		CreatedAt: now,
	}
	payload := models.EmailDelivery{
		To:         user.Email,
		TemplateID: models.TemplatePasswordReset,
		Data: map[string]interface{}{
			"app_name":   s.cfg.AppName,
			"name":       user.Name,
			"reset_url":  strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password?token=" + token,
			"expires_in": s.cfg.ResetTokenTTL.String(),
		},
	}

	_, err = s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		if _, err := s.tokens.InsertOne(sessCtx, reset); err != nil {
			return nil, err
		}
		return nil, s.outbox.Create(sessCtx, models.TopicEmailDelivery, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}
	s.logger.Info("Password reset requested", zap.String("user_id", user.ID.Hex()))
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, in *ResetPasswordInput) error {
	in.Token = strings.TrimSpace(in.Token)
	if err := validation.Struct(in); err != nil {
		return err
	}

	var reset models.PasswordResetToken
	err := s.tokens.FindOne(ctx, bson.M{"token": in.Token, "expires_at": bson.M{"$gt": time.Now().UTC()}}).Decode(&reset)
	if err != nil {
		if isNoDocuments(err) {
			return apperrors.Validation("Invalid or expired token")
		}
		return fmt.Errorf("failed to find reset token: %w", err)
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}

	_, err = s.txManager.WithTransaction(ctx, func(sessCtx context.Context) (interface{}, error) {
		res, err := s.users.UpdateByID(sessCtx, reset.UserID, bson.M{"$set": bson.M{
			"password":   hash,
			"updated_at": time.Now().UTC(),
		}})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, apperrors.NotFound("User")
		}
		_, err = s.tokens.DeleteOne(sessCtx, bson.M{"_id": reset.ID})
		return nil, err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return err
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

func (s *userService) GoogleLogin(ctx context.Context, profile *auth.GoogleProfile) (string, error) {
	email := normalizeEmail(profile.Email)
	user, err := s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"google_id": profile.Subject},
		bson.M{"email": email},
	}})
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	switch {
	case user == nil:
		user = &models.User{
			Base:         models.NewBase(),
			Name:         profile.Name,
			Email:        email,
			Role:         models.RoleUser,
			IsGoogleUser: true,
			GoogleID:     profile.Subject,
		}
		user.Touch(now)
		if _, err := s.users.InsertOne(ctx, user); err != nil {
			if db.IsMongoDuplicateKeyError(err) {
				return "", apperrors.Conflict("Email already exists", err)
			}
			return "", fmt.Errorf("failed to create google user: %w", err)
		}
		s.logger.Info("Google user created", zap.String("user_id", user.ID.Hex()))
	case user.GoogleID == "":
		_, err := s.users.UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
			"google_id":      profile.Subject,
			"is_google_user": true,
			"updated_at":     now,
		}})
		if err != nil {
			return "", fmt.Errorf("failed to link google account: %w", err)
		}
	}
	return s.issueToken(user)
}
