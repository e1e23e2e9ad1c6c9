package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/customer"
	"golang.org/x/crypto/bcrypt"

	"resale-api/internal/logger"
	"resale-api/internal/models"
	"resale-api/internal/pkg/errors"
	"resale-api/internal/repository"
)

type contextKey string

const (
	UserContextKey    contextKey = "user"
	ProfileContextKey contextKey = "profile"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, *models.Profile, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifyToken(token string) (*models.User, *models.Profile, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type authService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	jwtSecret   string
}

func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	jwtSecret string,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		jwtSecret:   jwtSecret,
	}
}

// Register creates the account. The profile row is created by the signup
// hook on the user model, inside the same insert transaction, so an account
// can never exist without its profile.
func (s *authService) Register(ctx context.Context, email, password string) (*models.User, *models.Profile, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	profile, err := s.profileRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if stripe.Key != "" {
		params := &stripe.CustomerParams{
			Email: stripe.String(email),
		}
		c, err := customer.New(params)
		if err != nil {
			logger.Logger.WithFields(logrus.Fields{
				"user":  user.ID,
				"error": err,
			}).Warn("Failed to create Stripe customer")
		} else if err := s.profileRepo.SetStripeCustomerID(ctx, user.ID, c.ID); err != nil {
			logger.Logger.WithFields(logrus.Fields{
				"user":  user.ID,
				"error": err,
			}).Warn("Failed to store Stripe customer ID")
		} else {
			profile.StripeCustomerID = c.ID
		}
	}

	if err := s.sendWelcomeEmail(user.Email); err != nil {
		logger.Logger.WithFields(logrus.Fields{
			"user":  user.ID,
			"error": err,
		}).Warn("Failed to send welcome email")
	}

	return user, profile, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errors.ErrInvalidCredentials
	}

	profile, err := s.profileRepo.GetByID(ctx, user.ID)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"plan":    string(profile.Plan),
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	})

	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) VerifyToken(tokenString string) (*models.User, *models.Profile, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidCredentials
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, nil, errors.ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil, errors.ErrInvalidCredentials
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return nil, nil, errors.ErrInvalidCredentials
	}

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, errors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(context.Background(), userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.profileRepo.GetByID(context.Background(), userID)
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

func (s *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}

func (s *authService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Helper function to add user and profile to context
func WithUserAndProfileContext(ctx context.Context, user *models.User, profile *models.Profile) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, ProfileContextKey, profile)
}

// Helper function to get user from context
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// Helper function to get profile from context
func ProfileFromContext(ctx context.Context) (*models.Profile, bool) {
	profile, ok := ctx.Value(ProfileContextKey).(*models.Profile)
	return profile, ok
}

func (s *authService) sendWelcomeEmail(email string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		return nil
	}

	from := mail.NewEmail("Resale Evaluator", "noreply@resale-evaluator.com")
	subject := "Welcome to Resale Evaluator"
	to := mail.NewEmail("", email)

	htmlContent := fmt.Sprintf(`
		<html>
		<body style="font-family: Arial, sans-serif; padding: 20px;">
			<h1>Welcome to Resale Evaluator!</h1>
			<p>Your account <strong>%s</strong> is ready. You are on the free plan
			with 10 evaluations per month.</p>
			<p>Submit a listing and we will score the deal for you.</p>
		</body>
		</html>
	`, email)

	message := mail.NewSingleEmail(from, subject, to, "", htmlContent)
	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("error sending email: %v", response.Body)
	}

	return nil
}
