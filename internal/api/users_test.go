package api

import (
	"context"
	"regexp"
	"testing"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser_Validation(t *testing.T) {
	s, _, _ := setupTestService(t, testConfig())
	ctx := context.Background()

	taken := registerUser(t, s, "taken@example.com", "")

	tests := []struct {
		name   string
		params RegisterParams
		want   models.RejectionCode
	}{
		{"missing name", RegisterParams{Name: "  ", Email: "a@example.com", Age: 30}, models.RejectInvalidName},
		{"missing email", RegisterParams{Name: "Ann", Age: 30}, models.RejectInvalidEmail},
		{"malformed email", RegisterParams{Name: "Ann", Email: "not-an-email", Age: 30}, models.RejectInvalidEmail},
		{"underage", RegisterParams{Name: "Ann", Email: "a@example.com", Age: 17}, models.RejectUnderage},
		{"unknown referral", RegisterParams{Name: "Ann", Email: "a@example.com", Age: 30, ReferralCode: "ffffff"}, models.RejectInvalidReferral},
		{"missing referral", RegisterParams{Name: "Ann", Email: "a@example.com", Age: 30}, models.RejectInvalidReferral},
		{"duplicate email", RegisterParams{Name: "Ann", Email: " TAKEN@example.com", Age: 30, ReferralCode: taken.ReferralCode}, models.RejectEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.RegisterUser(ctx, tt.params)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Code)
			assert.NotEmpty(t, result.Error)
		})
	}

	count, err := s.db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterUser_NormalizesAndCreatesAccount(t *testing.T) {
	s, _, _ := setupTestService(t, testConfig())
	ctx := context.Background()

	result, err := s.RegisterUser(ctx, RegisterParams{Name: " Ann ", Email: " Ann@Example.COM ", Age: 18})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	user := result.User
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{6}$`), user.ReferralCode)
	assert.Empty(t, user.ReferredBy)
	assert.False(t, user.IsAdmin)

	requireBalance(t, s, user.Id, "0")
}

func TestRegisterUser_ReferralRequiredAfterFirstMember(t *testing.T) {
	s, _, _ := setupTestService(t, testConfig())
	ctx := context.Background()

	first := registerUser(t, s, "first@example.com", "")
	assert.Empty(t, first.ReferredBy)

	for _, email := range []string{"second@example.com", "third@example.com"} {
		result, err := s.RegisterUser(ctx, RegisterParams{Name: "Late", Email: email, Age: 30})
		require.NoError(t, err)
		assert.False(t, result.Success, email)
		assert.Equal(t, models.RejectInvalidReferral, result.Code, email)
	}

	second := registerUser(t, s, "second@example.com", first.ReferralCode)
	assert.Equal(t, first.ReferralCode, second.ReferredBy)

	count, err := s.db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegisterUser_AdminReferralFlow(t *testing.T) {
	cfg := testConfig()
	cfg.AdminEmail = "admin@example.com"
	s, _, _ := setupTestService(t, cfg)
	ctx := context.Background()

	// A referral code is mandatory once an administrator is configured
	result, err := s.RegisterUser(ctx, RegisterParams{Name: "Ann", Email: "ann@example.com", Age: 30})
	require.NoError(t, err)
	assert.Equal(t, models.RejectInvalidReferral, result.Code)

	admin, created, err := s.EnsureAdmin(ctx, "Admin", 40)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, AdminReferralCode, admin.ReferralCode)
	assert.True(t, admin.IsAdmin)

	again, created, err := s.EnsureAdmin(ctx, "Admin", 40)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.Id, again.Id)

	ann := registerUser(t, s, "ann@example.com", AdminReferralCode)
	assert.Equal(t, AdminReferralCode, ann.ReferredBy)

	bob := registerUser(t, s, "bob@example.com", ann.ReferralCode)
	assert.Equal(t, ann.ReferralCode, bob.ReferredBy)
}

func TestRegisterUser_FirstAdminGetsBootstrapCode(t *testing.T) {
	cfg := testConfig()
	cfg.AdminEmail = "admin@example.com"
	s, _, _ := setupTestService(t, cfg)

	admin := registerUser(t, s, "Admin@Example.com", "")
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, AdminReferralCode, admin.ReferralCode)
	assert.Empty(t, admin.ReferredBy)
}

func TestDeleteUser(t *testing.T) {
	s, _, _ := setupTestService(t, testConfig())
	ctx := context.Background()

	user := registerUser(t, s, "gone@example.com", "")
	fund(t, s, user.Id, "75")

	require.NoError(t, s.DeleteUser(ctx, user.Id))

	_, err := s.GetUser(ctx, user.Id)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, user.Id), store.ErrUserNotFound)

	// History outlives the user
	entries, err := s.db.GetLedgerEntries(ctx, store.LedgerFilter{UserId: user.Id})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := GenerateReferralCode()
		assert.Len(t, code, 6)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 40)
}
