package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner(testSecret, time.Hour)
	id := uuid.NewString()

	token, err := s.Sign(id)
	require.NoError(t, err)

	got, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestSigner_RejectsOtherSecret(t *testing.T) {
	token, err := NewSigner(testSecret, time.Hour).Sign(uuid.NewString())
	require.NoError(t, err)

	_, err = NewSigner("another-secret-value", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_RejectsExpired(t *testing.T) {
	s := NewSigner(testSecret, time.Minute)
	issued := time.Now()
	s.now = func() time.Time { return issued }
	token, err := s.Sign(uuid.NewString())
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Verify(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestSigner_RejectsTampered(t *testing.T) {
	s := NewSigner(testSecret, time.Hour)
	token, err := s.Sign(uuid.NewString())
	require.NoError(t, err)

	_, err = s.Verify(token[:len(token)-2] + "xx")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_RejectsOtherMethod(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewSigner(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_RejectsBadClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.RegisteredClaims
	}{
		{
			name: "non uuid subject",
			claims: jwt.RegisteredClaims{
				Subject:   "../admin",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		},
		{
			name: "wrong issuer",
			claims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		},
		{
			name: "no expiry",
			claims: jwt.RegisteredClaims{
				Subject: uuid.NewString(),
				Issuer:  issuer,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte(testSecret))
			require.NoError(t, err)

			_, err = NewSigner(testSecret, time.Hour).Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
