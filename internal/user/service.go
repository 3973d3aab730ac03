// Package user manages accounts: registration, credential checks, profile
// contacts and the verification and admin flags.
package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/carhub/internal/alerts"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/validation"
)

var (
	errNotFound     = apperr.NotFound("User not found.")
	ErrInvalidLogin = apperr.Validation("Invalid username or password.")
)

type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Username        string `json:"username" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// ContactsRequest replaces the profile contact fields. Empty values clear them.
type ContactsRequest struct {
	Phone   string `json:"phone" validate:"max=50"`
	City    string `json:"city" validate:"max=100"`
	Country string `json:"country" validate:"max=100"`
}

// PublicProfile is what other users see of an account.
type PublicProfile struct {
	ID        int64                `json:"id"`
	Username  string               `json:"username"`
	FirstName string               `json:"first_name"`
	City      string               `json:"city,omitempty"`
	Country   string               `json:"country,omitempty"`
	Verified  bool                 `json:"verified"`
	Rating    models.RatingSummary `json:"rating"`
	CreatedAt time.Time            `json:"created_at"`
}

type Service struct {
	store  store.Store
	notify alerts.Notifier
	now    func() time.Time
}

func NewService(s store.Store, notify alerts.Notifier) *Service {
	if notify == nil {
		notify = alerts.Nop{}
	}
	return &Service{store: s, notify: notify, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates an account with a bcrypt password hash and schedules the
// welcome email.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (u models.User, err error) {
	defer func() { metrics.AuthTotal.WithLabelValues("register", metrics.Result(err)).Inc() }()

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(req); err != nil {
		return models.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u = models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		CreatedAt:    s.now(),
	}
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.CreateUser(ctx, &u)
	})
	if errors.Is(err, store.ErrConflict) {
		return models.User{}, apperr.Validation("Username or email already exists.")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := s.notify.Welcome(ctx, u); err != nil {
		log.Printf("[notify][ERROR] %s enqueue failed: %v", alerts.TaskWelcomeEmail, err)
		metrics.NotifyErrors.WithLabelValues(alerts.TaskWelcomeEmail).Inc()
	}
	return u, nil
}

// Authenticate checks a username or email against the stored hash. Unknown
// logins and wrong passwords fail the same way.
func (s *Service) Authenticate(ctx context.Context, login, password string) (u models.User, err error) {
	defer func() { metrics.AuthTotal.WithLabelValues("login", metrics.Result(err)).Inc() }()

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return models.User{}, apperr.Validation("Please enter both username and password.")
	}
	err = s.store.View(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUserByLogin(ctx, login)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrInvalidLogin
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidLogin
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, errNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Profile returns the public view of a user with their seller rating.
func (s *Service) Profile(ctx context.Context, id int64) (PublicProfile, error) {
	var (
		u   models.User
		sum models.RatingSummary
	)
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		if u, err = tx.GetUser(ctx, id); err != nil {
			return err
		}
		sum, err = tx.SellerSummary(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return PublicProfile{}, errNotFound
	}
	if err != nil {
		return PublicProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		City:      u.City,
		Country:   u.Country,
		Verified:  u.Verified,
		Rating:    sum,
		CreatedAt: u.CreatedAt,
	}, nil
}

// UpdateContacts rewrites the user's phone, city and country and copies them
// onto every listing they own.
func (s *Service) UpdateContacts(ctx context.Context, id int64, req ContactsRequest) (models.User, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.City = strings.TrimSpace(req.City)
	req.Country = strings.TrimSpace(req.Country)
	if err := validation.Struct(req); err != nil {
		return models.User{}, err
	}

	var u models.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.UpdateUserContacts(ctx, id, req.Phone, req.City, req.Country); err != nil {
			return err
		}
		if err := tx.UpdateOwnerContacts(ctx, id, req.Phone, req.City, req.Country); err != nil {
			return fmt.Errorf("update listings: %w", err)
		}
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, errNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("update contacts: %w", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// SetVerified sets the verified badge either way. Only admins reach this.
func (s *Service) SetVerified(ctx context.Context, id int64, verified bool) (models.User, error) {
	var u models.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.SetVerified(ctx, id, verified); err != nil {
			return err
		}
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, errNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("set verified: %w", err)
	}
	return u, nil
}

// PromoteAdmin grants the admin flag to the account with the given email.
func (s *Service) PromoteAdmin(ctx context.Context, email string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.User{}, apperr.Validation("email required")
	}
	var u models.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.SetAdminByEmail(ctx, email)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, errNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("promote admin: %w", err)
	}
	return u, nil
}
