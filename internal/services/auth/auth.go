// Package auth содержит логику регистрации, авторизации и валидации JWT.
package auth

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/game-rental-service/internal/lib/jwt"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/password"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ProfileRepository описывает контракт для работы с профилями в базе данных.
type ProfileRepository interface {
	// CreateProfile сохраняет нового пользователя и возвращает его UID.
	CreateProfile(ctx context.Context, profile models.Profile) (string, error)
	// GetProfileByUsername возвращает профиль по имени пользователя.
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	profiles ProfileRepository
	jwtMaker jwt.Maker
}

// New создает новый экземпляр Service.
func New(profiles ProfileRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		profiles: profiles,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля.
// Новые аккаунты всегда начинают с роли free и неиспользованным триалом.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	profile := models.Profile{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         models.RoleFree,
	}
	return s.profiles.CreateProfile(ctx, profile)
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token string, role models.Role, err error) {
	profile, err := s.profiles.GetProfileByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	if err := password.CompareHash(profile.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(profile.Username, string(profile.Role), profile.UID)
	if err != nil {
		return "", "", err
	}
	return token, profile.Role, nil
}

// ValidateToken проверяет JWT и возвращает claims, если токен корректен.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}
