package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_LengthBounds(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"empty", "", ErrPasswordTooShort},
		{"seven chars", "short77", ErrPasswordTooShort},
		{"spaces only", "       ", ErrPasswordTooShort},
		{"minimum eight", "shopper1", nil},
		{"typical", "My$torefr0nt-login", nil},
		{"multibyte within limit", "パスワード12345", nil},
		{"exactly 72 bytes", strings.Repeat("k", 72), nil},
		{"73 bytes", strings.Repeat("k", 73), ErrPasswordTooLong},
		{"multibyte past limit", strings.Repeat("買", 25), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.True(t, CheckPassword(tt.password, hash))
		})
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	hash1, err := HashPassword("same-password-1")
	require.NoError(t, err)
	hash2, err := HashPassword("same-password-1")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
	assert.True(t, CheckPassword("same-password-1", hash1))
	assert.True(t, CheckPassword("same-password-1", hash2))
}

func TestCheckPassword_Rejections(t *testing.T) {
	hash, err := HashPassword("Shopper-Pass1")
	require.NoError(t, err)

	assert.False(t, CheckPassword("Shopper-Pass2", hash), "wrong password")
	assert.False(t, CheckPassword("shopper-pass1", hash), "case differs")
	assert.False(t, CheckPassword("", hash), "empty password")
	assert.False(t, CheckPassword("Shopper-Pass1", ""), "empty hash")
	assert.False(t, CheckPassword("Shopper-Pass1", "not-a-bcrypt-hash"), "garbage hash")
}
