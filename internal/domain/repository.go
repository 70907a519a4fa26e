package domain

import (
	"context"
	"time"
)

// ProfileChange 后台编辑用户资料
type ProfileChange struct {
	Name       string
	Email      string
	AccessType AccessType
}

// UserRepository 读路径 + 事务入口
type UserRepository interface {
	List(ctx context.Context, p Page) ([]User, int64, error)
	FindByID(ctx context.Context, id int64, scope Scope) (*User, error)
	FindByEmail(ctx context.Context, email string, scope Scope) (*User, error)
	// PasswordHash 不区分软删；found=false 表示行不存在
	PasswordHash(ctx context.Context, id int64) (hash string, found bool, err error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	// Transaction fn 返回 nil 提交，返回 error 或 panic 时回滚
	Transaction(ctx context.Context, fn func(tx UserTx) error) error
}

// UserTx 事务内的写操作；所有 update 路径只命中未软删的行，返回受影响行数
type UserTx interface {
	Insert(u *User) error
	UpdateProfile(id int64, ch ProfileChange, by *int64, at time.Time) (int64, error)
	SoftDelete(id int64, by *int64, at time.Time) (int64, error)
	// LockActive SELECT ... FOR UPDATE；行不存在或已软删返回 false
	LockActive(id int64) (bool, error)
	SetPassword(id int64, hash string) (int64, error)
	ResetPassword(id int64, hash string, by *int64, at time.Time) (int64, error)
}
