package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"go-gin-gorm-useradmin/internal/domain"
	"go-gin-gorm-useradmin/pkg/utils"
)

// DefaultPassword 新建 / 重置时的初始密码
const DefaultPassword = "asdasd"

type Options struct {
	DefaultPassword string
	Now             func() time.Time
}

// UserService 用户管理用例层。无进程内共享可变状态，并发安全；
// 协调全部下沉到数据库事务与行锁。
type UserService struct {
	repo     domain.UserRepository
	hasher   utils.PasswordHasher
	log      *zap.Logger
	validate *validator.Validate

	defaultPassword string
	now             func() time.Time
}

func NewUserService(repo domain.UserRepository, hasher utils.PasswordHasher, l *zap.Logger, opt Options) *UserService {
	if opt.DefaultPassword == "" {
		opt.DefaultPassword = DefaultPassword
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{
		repo:            repo,
		hasher:          hasher,
		log:             l,
		validate:        newValidator(),
		defaultPassword: opt.DefaultPassword,
		now:             opt.Now,
	}
}

// fail 记录原始错误（含操作名和操作人），返回不透明的 ServiceError
func (s *UserService) fail(op string, p domain.Principal, err error) error {
	s.log.Error(err.Error(),
		zap.String("func_name", "UserService."+op),
		zap.Int64("principal_id", p.ID),
		zap.String("principal_access", string(p.AccessType)),
	)
	return &ServiceError{Op: op, Err: err}
}

func (s *UserService) List(ctx context.Context, p domain.Principal, page domain.Page) (domain.PageResult[domain.User], error) {
	if page.Size <= 0 {
		page = domain.NewPage(page.Number)
	}
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return domain.PageResult[domain.User]{}, s.fail("List", p, err)
	}
	return domain.NewPageResult(items, page, total), nil
}

// GetByID 不存在或已软删返回 (nil, nil)
func (s *UserService) GetByID(ctx context.Context, p domain.Principal, id int64) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id, domain.ScopeActive)
	if err != nil {
		return nil, s.fail("GetByID", p, err)
	}
	return u, nil
}

func (s *UserService) Create(ctx context.Context, p domain.Principal, in CreateUserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	fields, err := fieldErrors(s.validate.Struct(in))
	if err != nil {
		return nil, s.fail("Create", p, err)
	}
	// 唯一性只对未软删的行生效
	if !hasField(fields, "email") {
		taken, err := s.repo.EmailTaken(ctx, in.Email)
		if err != nil {
			return nil, s.fail("Create", p, err)
		}
		if taken {
			fields = append(fields, FieldError{Field: "email", Rule: "unique", Message: validationMessage("unique", "")})
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := s.hasher.Hash(s.defaultPassword)
	if err != nil {
		return nil, s.fail("Create", p, err)
	}
	now := s.now()
	u := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		AccessType:   domain.AccessType(in.AccessType),
		PasswordHash: hash,
		IsActive:     true,
		CreatedBy:    p.ActorID(),
		CreatedAt:    &now,
	}
	err = s.repo.Transaction(ctx, func(tx domain.UserTx) error {
		return tx.Insert(u)
	})
	if err != nil {
		return nil, s.fail("Create", p, err)
	}
	return u, nil
}

// Update 不做存在性检查：id 不存在或已软删时 0 行受影响，仍返回成功
func (s *UserService) Update(ctx context.Context, p domain.Principal, id int64, in UpdateUserInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	fields, err := fieldErrors(s.validate.Struct(in))
	if err != nil {
		return 0, s.fail("Update", p, err)
	}
	if len(fields) > 0 {
		return 0, &ValidationError{Fields: fields}
	}

	var affected int64
	err = s.repo.Transaction(ctx, func(tx domain.UserTx) error {
		n, err := tx.UpdateProfile(id, domain.ProfileChange{
			Name:       in.Name,
			Email:      in.Email,
			AccessType: domain.AccessType(in.AccessType),
		}, p.ActorID(), s.now())
		affected = n
		return err
	})
	if err != nil {
		return 0, s.fail("Update", p, err)
	}
	if affected == 0 {
		s.log.Debug("update matched no active row", zap.Int64("id", id), zap.Int64("principal_id", p.ID))
	}
	return affected, nil
}

// Delete 软删；0 行受影响视为失败并回滚
func (s *UserService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	err := s.repo.Transaction(ctx, func(tx domain.UserTx) error {
		n, err := tx.SoftDelete(id, p.ActorID(), s.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return errDeleteNoRows
		}
		return nil
	})
	if err != nil {
		return s.fail("Delete", p, err)
	}
	return nil
}

// ChangePassword 仅作用于当前登录人；校验通过后加行锁再写，防止校验与写入之间被删除
func (s *UserService) ChangePassword(ctx context.Context, p domain.Principal, in ChangePasswordInput) error {
	fields, err := fieldErrors(s.validate.Struct(in))
	if err != nil {
		return s.fail("ChangePassword", p, err)
	}
	if !hasField(fields, "current_password") {
		ok, err := s.checkCurrentPassword(ctx, p.ID, in.CurrentPassword)
		if err != nil {
			return s.fail("ChangePassword", p, err)
		}
		if !ok {
			fields = append([]FieldError{{
				Field:   "current_password",
				Rule:    "current_password",
				Message: validationMessage("current_password", ""),
			}}, fields...)
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return s.fail("ChangePassword", p, err)
	}
	err = s.repo.Transaction(ctx, func(tx domain.UserTx) error {
		locked, err := tx.LockActive(p.ID)
		if err != nil {
			return err
		}
		if !locked {
			return errLockMiss
		}
		n, err := tx.SetPassword(p.ID, hash)
		if err != nil {
			return err
		}
		if n == 0 {
			return errLockMiss
		}
		return nil
	})
	if err != nil {
		return s.fail("ChangePassword", p, err)
	}
	return nil
}

func (s *UserService) checkCurrentPassword(ctx context.Context, id int64, pw string) (bool, error) {
	hash, found, err := s.repo.PasswordHash(ctx, id)
	if err != nil || !found {
		return false, err
	}
	return s.hasher.Compare(hash, pw), nil
}

// ResetPassword 重置为默认密码；不做存在性检查
func (s *UserService) ResetPassword(ctx context.Context, p domain.Principal, id int64) error {
	hash, err := s.hasher.Hash(s.defaultPassword)
	if err != nil {
		return s.fail("ResetPassword", p, err)
	}
	err = s.repo.Transaction(ctx, func(tx domain.UserTx) error {
		_, err := tx.ResetPassword(id, hash, p.ActorID(), s.now())
		return err
	})
	if err != nil {
		return s.fail("ResetPassword", p, err)
	}
	return nil
}
