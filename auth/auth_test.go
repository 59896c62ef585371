package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "AVeryS0lid-Passphrase!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword1!", hash)
	req.NoError(err)
	req.False(match)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"Valid request", RegisterRequest{"alice", "test@example.com", "ComplexPass123!"}, nil},
		{"Invalid email", RegisterRequest{"alice", "notanemail", "ComplexPass123!"}, errors.ErrInvalidRegistration},
		{"Username too short", RegisterRequest{"al", "test@example.com", "ComplexPass123!"}, errors.ErrInvalidRegistration},
		{"Password too short", RegisterRequest{"alice", "test@example.com", "Short1!"}, errors.ErrInvalidRegistration},
		{"Missing digit", RegisterRequest{"alice", "test@example.com", "NoDigitPassword!"}, errors.ErrInvalidPassword},
		{"Missing special char", RegisterRequest{"alice", "test@example.com", "NoSpecialChar123"}, errors.ErrInvalidPassword},
		{"Missing uppercase", RegisterRequest{"alice", "test@example.com", "nouppercase123!"}, errors.ErrInvalidPassword},
		{"Password too long (edge case)", RegisterRequest{"alice", "test@example.com", strings.Repeat("a", 73)}, errors.ErrInvalidRegistration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", "alice", []string{"user"}, time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal([]string{"user"}, claims.Roles)
}

func TestTokenExpiry(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", "alice", []string{"user"}, -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
