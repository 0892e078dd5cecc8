package main

import (
	"context"
	"fmt"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type newUser struct {
	FullName string      `json:"fullName" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Role     models.Role `json:"role" validate:"oneof=USER ADMIN"`
}

// createUser stores a user with a bcrypt-hashed password.
func createUser(ctx context.Context, s storage.Storage, fullName, email, password string, role models.Role) (*models.User, error) {
	in := newUser{FullName: fullName, Email: email, Password: password, Role: role}
	if err := validation.ValidateStruct(&in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		FullName: fullName,
		Email:    email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// issueToken signs a token for an existing user with the user's role.
func issueToken(ctx context.Context, s storage.Storage, tokens *auth.TokenService, userID uint) (string, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return tokens.Generate(user.ID, user.Role)
}
