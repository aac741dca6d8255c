package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perfect-slate/database"
	"perfect-slate/logging"
	"perfect-slate/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "perfect-slate"

// AuthService handles sign-up, sign-in and session tokens
type AuthService struct {
	userRepo    UserRepository
	profiles    *ProfileService
	jwtSecret   []byte
	tokenExpiry time.Duration
	now         func() time.Time
	logger      *logging.Logger
}

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo UserRepository, profiles *ProfileService, jwtSecret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		profiles:    profiles,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
		now:         time.Now,
		logger:      logging.WithPrefix("Auth"),
	}
}

// SignUp creates the account and its profile, then signs the user in
func (a *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	existing, err := a.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	if req.Username != "" && a.profiles != nil {
		available, err := a.profiles.UsernameAvailable(ctx, req.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if !available {
			return nil, ErrUsernameTaken
		}
	}

	now := a.now()
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     models.NormalizeEmail(req.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := a.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if a.profiles != nil {
		if _, err := a.profiles.GetOrCreate(ctx, user.ID, user.Email, req.Username); err != nil {
			// The profile is created again on first access, so the account stays usable.
			a.logger.Warnf("Failed to create profile for %s: %v", user.ID, err)
		}
	}

	a.logger.Infof("New account %s", user.ID)
	return a.issue(user)
}

// Login authenticates a user and returns a session
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return a.issue(user)
}

func (a *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := a.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.AuthResponse{
		User: user.ToSafeUser(),
		Session: models.Session{
			UserID:      user.ID,
			Email:       user.Email,
			AccessToken: token,
			ExpiresAt:   expiresAt,
		},
	}, nil
}

// GenerateToken creates a new JWT token for the user
func (a *AuthService) GenerateToken(user *models.User) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.tokenExpiry)
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func (a *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return a.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// SessionFromToken validates the token and confirms the account still exists
func (a *AuthService) SessionFromToken(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := a.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	return &models.Session{
		UserID:      user.ID,
		Email:       user.Email,
		AccessToken: tokenString,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
