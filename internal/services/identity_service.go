package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"food_crm/internal/models"
	"food_crm/internal/repository"
)

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(userID uint, role string) (string, error)
}

type IdentityService struct {
	users  repository.UserRepository
	tokens TokenIssuer
}

func NewIdentityService(users repository.UserRepository, tokens TokenIssuer) *IdentityService {
	return &IdentityService{users: users, tokens: tokens}
}

// RegisterOrUpdateCustomer creates the customer account for email, or
// refreshes an existing one. A phone owned by another account is rejected.
func (s *IdentityService) RegisterOrUpdateCustomer(ctx context.Context, email, phone string) (*models.User, error) {
	email = NormalizeEmail(email)
	phone = strings.TrimSpace(phone)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logrus.WithError(err).WithField("email", email).Error("failed to look up customer")
		return nil, ErrInternal
	}

	if phone != "" {
		owner, err := s.users.FindByPhone(ctx, phone)
		switch {
		case err == nil:
			if user == nil || owner.ID != user.ID {
				return nil, invalid("phone", "is already registered to another account")
			}
		case !errors.Is(err, repository.ErrNotFound):
			logrus.WithError(err).Error("failed to look up phone owner")
			return nil, ErrInternal
		}
	}

	if user == nil {
		user = &models.User{
			Username: email + "_customer",
			Email:    email,
			Role:     models.RoleCustomer,
			IsActive: true,
		}
		if phone != "" {
			user.Phone = &phone
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return nil, invalid("email", "is already registered")
			}
			logrus.WithError(err).WithField("email", email).Error("failed to create customer")
			return nil, ErrInternal
		}
		logrus.WithField("user_id", user.ID).Info("customer registered")
		return user, nil
	}

	if phone != "" {
		user.Phone = &phone
	}
	user.Role = models.RoleCustomer
	user.IsActive = true
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, invalid("phone", "is already registered to another account")
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to update customer")
		return nil, ErrInternal
	}
	return user, nil
}

// ResolveCustomerEmail maps a phone number to the email its passcodes are keyed by.
func (s *IdentityService) ResolveCustomerEmail(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", invalid("phone", "is required")
	}
	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		logrus.WithError(err).Error("failed to look up customer by phone")
		return "", ErrInternal
	}
	return user.Email, nil
}

// StaffLogin checks username and password against the stored bcrypt hash
// and returns the derived role with a fresh token.
func (s *IdentityService) StaffLogin(ctx context.Context, username, password string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidCredentials
		}
		logrus.WithError(err).Error("failed to look up staff user")
		return "", "", ErrInternal
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}
	if !user.IsActive || !user.IsStaff {
		return "", "", ErrInvalidCredentials
	}

	role := models.RoleChef
	if user.IsSuperuser {
		role = models.RoleAdmin
	}
	if user.Role != role {
		user.Role = role
		if err := s.users.Save(ctx, user); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to persist staff role")
			return "", "", ErrInternal
		}
	}

	token, err := s.tokens.GenerateToken(user.ID, role)
	if err != nil {
		logrus.WithError(err).Error("failed to mint token")
		return "", "", ErrInternal
	}
	return role, token, nil
}

// CustomerLogin activates the customer account for email and mints a token.
func (s *IdentityService) CustomerLogin(ctx context.Context, email string) (*models.User, string, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		logrus.WithError(err).Error("failed to look up customer")
		return nil, "", ErrInternal
	}
	if user.Role != models.RoleCustomer {
		return nil, "", ErrNotFound
	}

	if !user.IsActive {
		user.IsActive = true
		if err := s.users.Save(ctx, user); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to activate customer")
			return nil, "", ErrInternal
		}
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		logrus.WithError(err).Error("failed to mint token")
		return nil, "", ErrInternal
	}
	return user, token, nil
}

func (s *IdentityService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).WithField("user_id", id).Error("failed to load user")
		return nil, ErrInternal
	}
	return user, nil
}

// CreateStaff creates or updates a staff account with a bcrypt-hashed password.
// Superusers log in as admin, everyone else as chef.
func (s *IdentityService) CreateStaff(ctx context.Context, username, email, password string, superuser bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, invalid("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		return nil, ErrInternal
	}

	role := models.RoleChef
	if superuser {
		role = models.RoleAdmin
	}

	user, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{Username: username}
	case err != nil:
		logrus.WithError(err).Error("failed to look up staff user")
		return nil, ErrInternal
	}

	user.Email = email
	user.PasswordHash = string(hash)
	user.Role = role
	user.IsStaff = true
	user.IsSuperuser = superuser
	user.IsActive = true

	if user.ID == 0 {
		err = s.users.Create(ctx, user)
	} else {
		err = s.users.Save(ctx, user)
	}
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, invalid("email", "is already registered")
		}
		logrus.WithError(err).WithField("username", username).Error("failed to save staff user")
		return nil, ErrInternal
	}
	return user, nil
}
