package repo

import (
	"time"

	"gorm.io/gorm"

	"go-gin-gorm-useradmin/internal/domain"
)

// userRow users 表持久化模型；时间戳由 repo 显式写入，关闭 gorm 自动时间
type userRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Name       string `gorm:"size:255;not null"`
	Email      string `gorm:"size:255;not null;index"`
	AccessType string `gorm:"size:16;not null;default:user"`
	Password   string `gorm:"size:255;not null"`
	IsActive   bool   `gorm:"not null;default:true"`
	CreatedBy  *int64 `gorm:"index"`
	UpdatedBy  *int64
	DeletedBy  *int64
	CreatedAt  *time.Time     `gorm:"autoCreateTime:false;index"`
	UpdatedAt  *time.Time     `gorm:"autoUpdateTime:false"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toDomain() domain.User {
	u := domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		AccessType:   domain.AccessType(r.AccessType),
		PasswordHash: r.Password,
		IsActive:     r.IsActive,
		CreatedBy:    r.CreatedBy,
		UpdatedBy:    r.UpdatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.DeletedAt.Valid {
		u.Deletion = &domain.Deletion{At: r.DeletedAt.Time, By: r.DeletedBy}
	}
	return u
}

func rowFromDomain(u *domain.User) userRow {
	r := userRow{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		AccessType: string(u.AccessType),
		Password:   u.PasswordHash,
		IsActive:   u.IsActive,
		CreatedBy:  u.CreatedBy,
		UpdatedBy:  u.UpdatedBy,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if u.Deletion != nil {
		r.DeletedAt = gorm.DeletedAt{Time: u.Deletion.At, Valid: true}
		r.DeletedBy = u.Deletion.By
	}
	return r
}
