package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-gorm-useradmin/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var (
	_ domain.UserRepository = (*UserRepo)(nil)
	_ domain.UserTx         = (*UserRepo)(nil)
)

// Migrate 建表/补列
func (r *UserRepo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&userRow{})
}

// scoped 每条读路径都必须显式选择生命周期范围
func (r *UserRepo) scoped(ctx context.Context, scope domain.Scope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&userRow{})
	if scope == domain.ScopeAll {
		q = q.Unscoped()
	}
	return q
}

func (r *UserRepo) List(ctx context.Context, p domain.Page) ([]domain.User, int64, error) {
	var total int64
	if err := r.scoped(ctx, domain.ScopeActive).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var rows []userRow
	err := r.scoped(ctx, domain.ScopeActive).
		Order("created_at DESC").Order("id DESC").
		Limit(p.Size).Offset(p.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, total, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id int64, scope domain.Scope) (*domain.User, error) {
	return r.first(r.scoped(ctx, scope).Where("id = ?", id))
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string, scope domain.Scope) (*domain.User, error) {
	return r.first(r.scoped(ctx, scope).Where("email = ?", email).Order("id ASC"))
}

func (r *UserRepo) first(q *gorm.DB) (*domain.User, error) {
	var row userRow
	err := q.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := row.toDomain()
	return &u, nil
}

func (r *UserRepo) PasswordHash(ctx context.Context, id int64) (string, bool, error) {
	var row userRow
	err := r.scoped(ctx, domain.ScopeAll).Select("id", "password").Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Password, true, nil
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := r.scoped(ctx, domain.ScopeActive).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) Transaction(ctx context.Context, fn func(tx domain.UserTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepo{db: tx})
	})
}

// ---------- 事务内写操作（r.db 为事务句柄） ----------

func (r *UserRepo) Insert(u *domain.User) error {
	row := rowFromDomain(u)
	if err := r.db.Create(&row).Error; err != nil {
		return err
	}
	u.ID = row.ID
	return nil
}

// active update 只命中 deleted_at IS NULL（gorm 软删条件自动追加）
func (r *UserRepo) active(id int64) *gorm.DB {
	return r.db.Model(&userRow{}).Where("id = ?", id)
}

func (r *UserRepo) UpdateProfile(id int64, ch domain.ProfileChange, by *int64, at time.Time) (int64, error) {
	res := r.active(id).Updates(map[string]any{
		"name":        ch.Name,
		"email":       ch.Email,
		"access_type": string(ch.AccessType),
		"updated_by":  by,
		"updated_at":  at,
	})
	return res.RowsAffected, res.Error
}

func (r *UserRepo) SoftDelete(id int64, by *int64, at time.Time) (int64, error) {
	res := r.active(id).Updates(map[string]any{
		"deleted_by": by,
		"deleted_at": at,
	})
	return res.RowsAffected, res.Error
}

func (r *UserRepo) LockActive(id int64) (bool, error) {
	var row userRow
	err := r.db.Model(&userRow{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UserRepo) SetPassword(id int64, hash string) (int64, error) {
	res := r.active(id).Update("password", hash)
	return res.RowsAffected, res.Error
}

func (r *UserRepo) ResetPassword(id int64, hash string, by *int64, at time.Time) (int64, error) {
	res := r.active(id).Updates(map[string]any{
		"password":   hash,
		"updated_by": by,
		"updated_at": at,
	})
	return res.RowsAffected, res.Error
}
