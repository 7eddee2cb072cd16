package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct{ db *gorm.DB }

func NewAuthService(db *gorm.DB) *AuthService { return &AuthService{db: db} }

func (s *AuthService) Login(ctx context.Context, username, password string) (*model.Staff, error) {
	var st model.Staff
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(st.Password), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	if !st.Active {
		return nil, fmt.Errorf("%w: account disabled", ErrForbidden)
	}
	return &st, nil
}

// HashPassword is used when staff accounts are provisioned.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
