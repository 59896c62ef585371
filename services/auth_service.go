package services

import (
	"fmt"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Login(email, password string) (Token, domain.User, error)
	Register(username, email, password string) (Token, domain.User, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokenDuration  time.Duration
}

type Token string

func NewAuthService(repo repositories.IUserRepository, tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(username, email, password string) (Token, domain.User, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}

	// 1. Validate business rules (email format, password complexity)
	// before any expensive cryptographic operation. The validator
	// carries its own sentinels (ErrInvalidRegistration, ErrInvalidPassword).
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", domain.User{}, err
	}

	// 2. Hash the password using Argon2id. Done in the service layer to
	// keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash.
	user, err := s.userRepository.CreateUser(username, email, hashedPassword)
	if err != nil {
		return "", domain.User{}, err // Propagates ErrUserAlreadyExists if email is taken
	}

	// 4. Generate the initial session token.
	token, err := auth.GenerateToken(user.ID, user.Username, user.Roles, s.tokenDuration)
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}

	return Token(token), domain.User{ID: user.ID, Username: user.Username}, nil
}

func (s *AuthService) Login(email, password string) (Token, domain.User, error) {
	// Generic error on every failure path to prevent user enumeration.
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Roles, s.tokenDuration)
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}

	return Token(token), domain.User{ID: user.ID, Username: user.Username}, nil
}
