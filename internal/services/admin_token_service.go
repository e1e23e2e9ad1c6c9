package services

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"

	"resale-api/internal/logger"
	"resale-api/internal/repository"
)

// AdminTokenService issues and validates the rotating token that guards
// maintenance endpoints (monthly usage reset, request log inspection).
type AdminTokenService struct {
	repo repository.AdminTokenRepository
}

func NewAdminTokenService(repo repository.AdminTokenRepository) *AdminTokenService {
	return &AdminTokenService{repo: repo}
}

func (s *AdminTokenService) GetOrCreateAdminToken() (string, error) {
	token, err := s.repo.GetLatestToken()
	if err == gorm.ErrRecordNotFound || (err == nil && time.Since(token.CreatedAt) > 24*time.Hour) {
		newToken := generateSecureToken(32)
		if err := s.repo.CreateToken(newToken); err != nil {
			return "", err
		}
		if err := s.repo.DeleteOldTokens(); err != nil {
			logger.Logger.WithField("error", err).Warn("Error deleting old admin tokens")
		}
		return newToken, nil
	} else if err != nil {
		return "", err
	}
	return token.Token, nil
}

// ValidateToken accepts only tokens issued within the rotation window.
func (s *AdminTokenService) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	record, err := s.repo.GetByToken(token)
	if err != nil {
		return false
	}
	return time.Since(record.CreatedAt) <= 24*time.Hour
}

func generateSecureToken(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
