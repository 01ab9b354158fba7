package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"food_crm/internal/mailer"
	"food_crm/internal/metrics"
	"food_crm/internal/models"
	"food_crm/internal/repository"
)

const otpSubject = "Your verification code"

type OTPService struct {
	store   repository.OTPStore
	mailer  mailer.Mailer
	metrics *metrics.Manager
	now     func() time.Time
	newCode func() (string, error)
}

func NewOTPService(store repository.OTPStore, m mailer.Mailer, mm *metrics.Manager) *OTPService {
	return &OTPService{
		store:   store,
		mailer:  m,
		metrics: mm,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: GenerateOTPCode,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return invalid("email", "is not a valid address")
	}
	return nil
}

// Issue replaces any passcode for email with a fresh one and mails it. If the
// mail cannot be delivered the new passcode is removed again.
func (s *OTPService) Issue(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		logrus.WithError(err).Error("failed to generate otp")
		return ErrInternal
	}

	now := s.now()
	otp := &models.OTP{
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(models.OTPValidity),
	}
	if err := s.store.Replace(ctx, otp); err != nil {
		logrus.WithError(err).WithField("email", email).Error("failed to store otp")
		return ErrInternal
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(models.OTPValidity.Minutes()))
	if err := s.mailer.Send(ctx, email, otpSubject, body); err != nil {
		delErr := s.store.Delete(context.WithoutCancel(ctx), otp)
		if delErr != nil && !errors.Is(delErr, repository.ErrNotFound) {
			logrus.WithError(delErr).WithField("email", email).Error("failed to roll back undelivered otp")
		}
		return &TransportError{Err: err}
	}

	s.metrics.OTPIssued()
	logrus.WithField("email", email).Info("otp issued")
	return nil
}

// Verify consumes the passcode for email when code matches and it has not expired.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if err := validateEmail(email); err != nil {
		return err
	}
	if code == "" {
		return invalid("otp", "is required")
	}

	otp, err := s.store.Latest(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.OTPVerified("not_found")
			return ErrNotFound
		}
		logrus.WithError(err).WithField("email", email).Error("failed to load otp")
		return ErrInternal
	}

	if otp.Expired(s.now()) {
		if err := s.store.Delete(ctx, otp); err != nil && !errors.Is(err, repository.ErrNotFound) {
			logrus.WithError(err).WithField("email", email).Error("failed to delete expired otp")
		}
		s.metrics.OTPVerified("expired")
		return ErrExpired
	}

	if otp.Code != code {
		s.metrics.OTPVerified("mismatch")
		return ErrMismatch
	}

	if err := s.store.Delete(ctx, otp); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.OTPVerified("not_found")
			return ErrNotFound
		}
		logrus.WithError(err).WithField("email", email).Error("failed to consume otp")
		return ErrInternal
	}
	s.metrics.OTPVerified("ok")
	return nil
}
