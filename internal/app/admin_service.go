package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"evdb_notifier/internal/domain/user"
)

// Custom application-level errors for admin service
var (
	ErrAdminNotAuthorized  = errors.New("performing user is not authorized as an admin")
	ErrUserAlreadyExists   = errors.New("user with this Telegram ID already exists")
	ErrUserAlreadyInactive = errors.New("user is already inactive")
	ErrInvalidUser         = errors.New("user name and role are required")
)

type AdminService struct {
	userRepo        user.Repository
	adminTelegramID int64
}

func NewAdminService(ur user.Repository, adminID int64) *AdminService {
	return &AdminService{
		userRepo:        ur,
		adminTelegramID: adminID,
	}
}

// IsAdmin reports whether the Telegram user is the configured administrator.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return telegramID == s.adminTelegramID
}

// AddUser registers a new notification recipient.
func (s *AdminService) AddUser(ctx context.Context, performingAdminID, telegramID int64, name, role string) (*user.User, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	name = strings.TrimSpace(name)
	role = strings.ToLower(strings.TrimSpace(role))
	if name == "" || role == "" {
		return nil, ErrInvalidUser
	}

	_, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	newUser := &user.User{
		TelegramID: telegramID,
		Name:       name,
		Role:       role,
		IsActive:   true,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, user.ErrDuplicateTelegramID) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}
	return newUser, nil
}

// DeactivateUser stops a user from receiving notifications. The row is kept.
func (s *AdminService) DeactivateUser(ctx context.Context, performingAdminID, telegramID int64) (*user.User, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	target, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by Telegram ID for removal: %w", err)
	}
	if !target.IsActive {
		return target, ErrUserAlreadyInactive
	}

	target.IsActive = false
	if err := s.userRepo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update user to inactive in repository: %w", err)
	}
	return target, nil
}

func (s *AdminService) ListActiveUsers(ctx context.Context, performingAdminID int64) ([]*user.User, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	return s.userRepo.ListActive(ctx)
}

func (s *AdminService) ListAllUsers(ctx context.Context, performingAdminID int64) ([]*user.User, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	return s.userRepo.ListAll(ctx)
}
