package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"go-gin-gorm-useradmin/internal/domain"
)

type UserRepository struct{ mock.Mock }

func (m *UserRepository) List(ctx context.Context, p domain.Page) ([]domain.User, int64, error) {
	a := m.Called(ctx, p)
	users, _ := a.Get(0).([]domain.User)
	return users, a.Get(1).(int64), a.Error(2)
}

func (m *UserRepository) FindByID(ctx context.Context, id int64, scope domain.Scope) (*domain.User, error) {
	a := m.Called(ctx, id, scope)
	u, _ := a.Get(0).(*domain.User)
	return u, a.Error(1)
}

func (m *UserRepository) FindByEmail(ctx context.Context, email string, scope domain.Scope) (*domain.User, error) {
	a := m.Called(ctx, email, scope)
	u, _ := a.Get(0).(*domain.User)
	return u, a.Error(1)
}

func (m *UserRepository) PasswordHash(ctx context.Context, id int64) (string, bool, error) {
	a := m.Called(ctx, id)
	return a.String(0), a.Bool(1), a.Error(2)
}

func (m *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	a := m.Called(ctx, email)
	return a.Bool(0), a.Error(1)
}

// Transaction 用法：On("Transaction", ctx).Return(nil, tx) 把 tx 交给 fn 并返回 fn 的结果；
// Return(err) 模拟 begin 失败，fn 不会执行。
func (m *UserRepository) Transaction(ctx context.Context, fn func(tx domain.UserTx) error) error {
	a := m.Called(ctx)
	if err := a.Error(0); err != nil {
		return err
	}
	tx, _ := a.Get(1).(domain.UserTx)
	return fn(tx)
}

type UserTx struct{ mock.Mock }

func (m *UserTx) Insert(u *domain.User) error { return m.Called(u).Error(0) }

func (m *UserTx) UpdateProfile(id int64, ch domain.ProfileChange, by *int64, at time.Time) (int64, error) {
	a := m.Called(id, ch, by, at)
	return a.Get(0).(int64), a.Error(1)
}

func (m *UserTx) SoftDelete(id int64, by *int64, at time.Time) (int64, error) {
	a := m.Called(id, by, at)
	return a.Get(0).(int64), a.Error(1)
}

func (m *UserTx) LockActive(id int64) (bool, error) {
	a := m.Called(id)
	return a.Bool(0), a.Error(1)
}

func (m *UserTx) SetPassword(id int64, hash string) (int64, error) {
	a := m.Called(id, hash)
	return a.Get(0).(int64), a.Error(1)
}

func (m *UserTx) ResetPassword(id int64, hash string, by *int64, at time.Time) (int64, error) {
	a := m.Called(id, hash, by, at)
	return a.Get(0).(int64), a.Error(1)
}
