package main

import (
	"context"
	"testing"
	"time"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/storage/storagetest"
	"camerashop/backend/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	store := storagetest.NewMemory()

	user, err := createUser(context.Background(), store, "Alice Admin", "alice@example.com", "s3cret-pass", models.RoleAdmin)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret-pass")))

	stored, ok := store.User(user.ID)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestCreateUser_Invalid(t *testing.T) {
	_, err := createUser(context.Background(), storagetest.NewMemory(), "Bob", "not-an-email", "short", "ROOT")

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "role")
}

func TestIssueToken(t *testing.T) {
	store := storagetest.NewMemory()
	id := store.AddUser(models.User{FullName: "admin", Role: models.RoleAdmin})
	tokens := auth.NewTokenService("test-secret", time.Hour)

	token, err := issueToken(context.Background(), store, tokens, id)
	require.NoError(t, err)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = issueToken(context.Background(), store, tokens, 999)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
