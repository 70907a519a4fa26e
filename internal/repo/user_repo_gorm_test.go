package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-gorm-useradmin/internal/core/database"
	"go-gin-gorm-useradmin/internal/domain"
)

func newRepo(t *testing.T) *UserRepo {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      "file:" + filepath.Join(t.TempDir(), "repo.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	r := NewUserRepo(db)
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func insert(t *testing.T, r *UserRepo, email string, at time.Time) *domain.User {
	t.Helper()
	u := &domain.User{
		Name: "n", Email: email, AccessType: domain.AccessUser,
		PasswordHash: "h", IsActive: true, CreatedAt: &at,
	}
	require.NoError(t, r.Transaction(context.Background(), func(tx domain.UserTx) error { return tx.Insert(u) }))
	require.NotZero(t, u.ID)
	return u
}

func TestSoftDeleteScopes(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	u := insert(t, r, "a@x.com", t0)
	by := int64(9)

	var n int64
	require.NoError(t, r.Transaction(ctx, func(tx domain.UserTx) (err error) {
		n, err = tx.SoftDelete(u.ID, &by, t0.Add(time.Hour))
		return err
	}))
	assert.Equal(t, int64(1), n)

	got, err := r.FindByID(ctx, u.ID, domain.ScopeActive)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = r.FindByID(ctx, u.ID, domain.ScopeAll)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Deleted())
	assert.Equal(t, &by, got.Deletion.By)
	assert.True(t, got.Deletion.At.Equal(t0.Add(time.Hour)))

	// 已软删的行不会被再次命中，首次审计字段保留
	require.NoError(t, r.Transaction(ctx, func(tx domain.UserTx) (err error) {
		other := int64(10)
		n, err = tx.SoftDelete(u.ID, &other, t0.Add(2*time.Hour))
		return err
	}))
	assert.Zero(t, n)
	got, _ = r.FindByID(ctx, u.ID, domain.ScopeAll)
	assert.Equal(t, &by, got.Deletion.By)

	// 密码哈希查询不过滤软删
	hash, found, err := r.PasswordHash(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "h", hash)

	taken, err := r.EmailTaken(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, taken)

	items, total, err := r.List(ctx, domain.NewPage(1))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestLockActiveAndWrites(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	u := insert(t, r, "b@x.com", t0)

	require.NoError(t, r.Transaction(ctx, func(tx domain.UserTx) error {
		ok, err := tx.LockActive(u.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		n, err := tx.SetPassword(u.ID, "h2")
		assert.Equal(t, int64(1), n)
		return err
	}))
	got, _ := r.FindByID(ctx, u.ID, domain.ScopeActive)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Nil(t, got.UpdatedBy, "password change does not stamp audit columns")

	require.NoError(t, r.Transaction(ctx, func(tx domain.UserTx) error {
		ok, err := tx.LockActive(12345)
		assert.False(t, ok)
		return err
	}))

	by := int64(1)
	require.NoError(t, r.Transaction(ctx, func(tx domain.UserTx) error {
		n, err := tx.ResetPassword(u.ID, "h3", &by, t0.Add(time.Minute))
		assert.Equal(t, int64(1), n)
		return err
	}))
	got, _ = r.FindByID(ctx, u.ID, domain.ScopeActive)
	assert.Equal(t, "h3", got.PasswordHash)
	assert.Equal(t, &by, got.UpdatedBy)
}

func TestTransactionRollsBack(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := r.Transaction(ctx, func(tx domain.UserTx) error {
		now := time.Now()
		if err := tx.Insert(&domain.User{Name: "n", Email: "c@x.com", AccessType: domain.AccessUser, IsActive: true, CreatedAt: &now}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := r.FindByEmail(ctx, "c@x.com", domain.ScopeAll)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListOrdering(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	older := insert(t, r, "old@x.com", t0)
	newer := insert(t, r, "new@x.com", t0.Add(time.Minute))
	tie := insert(t, r, "tie@x.com", t0.Add(time.Minute))

	items, total, err := r.List(ctx, domain.NewPage(1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{tie.ID, newer.ID, older.ID}, []int64{items[0].ID, items[1].ID, items[2].ID})
}
