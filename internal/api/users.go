package api

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"referral-deposit-go/internal/lock"
	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// AdminReferralCode belongs to the bootstrap administrator and is the
	// referredBy marker of any later administrator registration.
	AdminReferralCode = "000001"

	MinimumAge = 18

	referralCodeAttempts = 5
)

type RegisterParams struct {
	Name         string
	Email        string
	Age          int
	ReferralCode string
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser validates and creates a member together with an empty account
func (s *LedgerService) RegisterUser(ctx context.Context, params RegisterParams) (result *models.RegistrationResult, err error) {
	defer func() {
		if result != nil {
			recordOutcome("register", result.Success, result.Code, err)
		} else {
			recordOutcome("register", false, "", err)
		}
	}()

	name := strings.TrimSpace(params.Name)
	email := NormalizeEmail(params.Email)

	if name == "" {
		return registrationRejected(reject(models.RejectInvalidName, "Name is required")), nil
	}
	if email == "" {
		return registrationRejected(reject(models.RejectInvalidEmail, "Email is required")), nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return registrationRejected(reject(models.RejectInvalidEmail, "Email address is not valid")), nil
	}
	if params.Age < MinimumAge {
		return registrationRejected(reject(models.RejectUnderage, "Registration is only open to users aged %d and over", MinimumAge)), nil
	}

	isAdmin := s.cfg.AdminEmail != "" && email == s.cfg.AdminEmail
	code := strings.TrimSpace(params.ReferralCode)

	user := &models.User{
		Id:    uuid.New().String(),
		Name:  name,
		Email: email,
		Age:   params.Age,
	}

	if isAdmin {
		count, err := s.db.CountUsers(ctx)
		if err != nil {
			return nil, err
		}
		user.IsAdmin = true
		if count == 0 {
			user.ReferralCode = AdminReferralCode
		} else {
			user.ReferredBy = AdminReferralCode
		}
	} else if code == "" {
		// Only the very first member may join without a referrer
		count, err := s.db.CountUsers(ctx)
		if err != nil {
			return nil, err
		}
		if count > 0 || s.cfg.AdminEmail != "" {
			return registrationRejected(reject(models.RejectInvalidReferral, "Referral code is required")), nil
		}
	} else {
		if _, err := s.db.GetUserByReferralCode(ctx, code); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return registrationRejected(reject(models.RejectInvalidReferral, "Referral code is not valid")), nil
			}
			return nil, err
		}
		user.ReferredBy = code
	}

	if _, err := s.db.GetUserByEmail(ctx, email); err == nil {
		return registrationRejected(reject(models.RejectEmailTaken, "A user with this email already exists")), nil
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	created, err := s.createWithReferralCode(ctx, user)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return registrationRejected(reject(models.RejectEmailTaken, "A user with this email already exists")), nil
	}
	if err != nil {
		zap.L().Error("Registration failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	zap.L().Info("User registered",
		zap.String("user_id", created.Id),
		zap.String("email", created.Email),
		zap.String("referral_code", created.ReferralCode),
		zap.String("referred_by", created.ReferredBy),
		zap.Bool("is_admin", created.IsAdmin))

	return &models.RegistrationResult{Success: true, User: created}, nil
}

// EnsureAdmin creates the administrator with the bootstrap referral code when
// no user exists yet. It reports whether a user was created.
func (s *LedgerService) EnsureAdmin(ctx context.Context, name string, age int) (*models.User, bool, error) {
	if s.cfg.AdminEmail == "" {
		return nil, false, nil
	}

	count, err := s.db.CountUsers(ctx)
	if err != nil {
		return nil, false, err
	}
	if count > 0 {
		existing, err := s.db.GetUserByEmail(ctx, s.cfg.AdminEmail)
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, false, nil
		}
		return existing, false, err
	}

	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	if age < MinimumAge {
		age = MinimumAge
	}

	admin, err := s.db.CreateUser(ctx, &models.User{
		Id:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        s.cfg.AdminEmail,
		Age:          age,
		ReferralCode: AdminReferralCode,
		IsAdmin:      true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create administrator: %w", err)
	}

	zap.L().Info("Administrator bootstrapped",
		zap.String("user_id", admin.Id),
		zap.String("email", admin.Email))
	return admin, true, nil
}

func (s *LedgerService) GetUser(ctx context.Context, userId string) (*models.User, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.db.GetUserById(ctx, userId)
}

func (s *LedgerService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.db.GetUsers(ctx)
}

// DeleteUser hard-deletes a user. Their ledger entries are retained.
func (s *LedgerService) DeleteUser(ctx context.Context, userId string) error {
	if _, err := s.db.GetUserById(ctx, userId); err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, lock.UserKey(userId))
	if err != nil {
		return fmt.Errorf("failed to lock user %s: %w", userId, err)
	}
	defer unlock()

	if err := s.db.DeleteUser(ctx, userId); err != nil {
		return err
	}
	zap.L().Info("User deleted by administrator", zap.String("user_id", userId))
	return nil
}

func (s *LedgerService) createWithReferralCode(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ReferralCode != "" {
		return s.db.CreateUser(ctx, user)
	}

	var err error
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		user.ReferralCode = GenerateReferralCode()
		var created *models.User
		created, err = s.db.CreateUser(ctx, user)
		if !errors.Is(err, store.ErrDuplicateReferralCode) {
			return created, err
		}
		zap.L().Debug("Referral code collision, regenerating", zap.String("code", user.ReferralCode))
	}
	return nil, err
}

// GenerateReferralCode returns six random lower-case hex characters
func GenerateReferralCode() string {
	id := uuid.New()
	return hex.EncodeToString(id[:3])
}

func registrationRejected(r *Rejection) *models.RegistrationResult {
	return &models.RegistrationResult{Success: false, Code: r.Code, Error: r.Message}
}
