package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"go-gin-gorm-useradmin/internal/domain"
)

// Authenticate 登录校验：只接受未软删且 is_active 的账号
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.Principal, error) {
	email = strings.TrimSpace(email)
	u, err := s.repo.FindByEmail(ctx, email, domain.ScopeActive)
	if err != nil {
		return domain.Principal{}, s.fail("Authenticate", domain.Principal{}, err)
	}
	if u == nil || !u.IsActive || !s.hasher.Compare(u.PasswordHash, password) {
		return domain.Principal{}, ErrInvalidCredentials
	}
	return domain.Principal{ID: u.ID, AccessType: u.AccessType}, nil
}

type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// EnsureAdmin 启动时按配置补一个管理员；已存在（未软删）则跳过
func (s *UserService) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	email := strings.TrimSpace(seed.Email)
	if email == "" || seed.Password == "" {
		return nil
	}
	existing, err := s.repo.FindByEmail(ctx, email, domain.ScopeActive)
	if err != nil {
		return s.fail("EnsureAdmin", domain.Principal{}, err)
	}
	if existing != nil {
		return nil
	}
	hash, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return s.fail("EnsureAdmin", domain.Principal{}, err)
	}
	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = "Administrator"
	}
	now := s.now()
	u := &domain.User{
		Name:         name,
		Email:        email,
		AccessType:   domain.AccessAdmin,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    &now,
	}
	if err := s.repo.Transaction(ctx, func(tx domain.UserTx) error { return tx.Insert(u) }); err != nil {
		return s.fail("EnsureAdmin", domain.Principal{}, err)
	}
	s.log.Info("admin account seeded", zap.Int64("id", u.ID), zap.String("email", email))
	return nil
}
