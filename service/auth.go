package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTTL          = 7 * 24 * time.Hour
	minPasswordLength = 6
)

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type AuthService struct {
	users  UserStore
	secret []byte
	now    func() time.Time
}

func NewAuthService(users UserStore, jwtSecret string) *AuthService {
	return &AuthService{users: users, secret: []byte(jwtSecret), now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	name := strings.TrimSpace(in.Name)
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		return nil, "", invalid("name is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", invalid("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.create(ctx, name, email, in.Password, strings.TrimSpace(in.Phone), models.RoleCustomer)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", invalid("email and password required")
	}
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies an HS256 token and returns its claims.
func (s *AuthService) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	return claims, nil
}

func (s *AuthService) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.UserByID(ctx, id)
}

// SeedAdmin makes sure at least one admin exists on first run. An existing
// account with the admin email is promoted rather than duplicated.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	n, err := s.users.AdminsCount(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return err
	}
	existing, err := s.users.UserByEmail(ctx, email)
	switch {
	case err == nil:
		log.Printf("[auth] promoting %s to admin", email)
		return s.users.UpdateUserRole(ctx, existing.ID, models.RoleAdmin)
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	if password == "" {
		return invalid("admin password is required")
	}
	if _, err := s.create(ctx, "Administrator", email, password, "", models.RoleAdmin); err != nil {
		return err
	}
	log.Printf("[auth] seeded admin %s", email)
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// ChangeRole sets a user's role. The last remaining admin cannot be demoted.
func (s *AuthService) ChangeRole(ctx context.Context, userID primitive.ObjectID, role string) (*models.User, error) {
	if !validRole(role) {
		return nil, invalid("role must be one of %s", strings.Join(models.ValidRoles, ", "))
	}
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	if user.Role == models.RoleAdmin {
		n, err := s.users.AdminsCount(ctx)
		if err != nil {
			return nil, err
		}
		if n <= 1 {
			return nil, fmt.Errorf("%w: cannot demote the last admin", ErrConflict)
		}
	}
	if err := s.users.UpdateUserRole(ctx, userID, role); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

func (s *AuthService) create(ctx context.Context, name, email, password, phone, role string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		Phone:     phone,
		Role:      role,
		CreatedAt: s.now(),
	}
	id, err := s.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("a valid email is required")
	}
	return email, nil
}

func validRole(role string) bool {
	for _, r := range models.ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
