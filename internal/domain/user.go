package domain

import "time"

// AccessType 访问级别
type AccessType string

const (
	AccessAdmin AccessType = "admin"
	AccessUser  AccessType = "user"
)

func (a AccessType) Valid() bool { return a == AccessAdmin || a == AccessUser }

// Deletion 软删状态；nil 表示 Active
type Deletion struct {
	At time.Time `json:"at"`
	By *int64    `json:"by"`
}

type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	AccessType   AccessType `json:"access_type"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	CreatedBy    *int64     `json:"created_by"`
	UpdatedBy    *int64     `json:"updated_by"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
	Deletion     *Deletion  `json:"deletion,omitempty"`
}

func (u *User) Deleted() bool { return u.Deletion != nil }

// Principal 当前操作人（用于审计字段与自助改密）
type Principal struct {
	ID         int64
	AccessType AccessType
}

// ActorID 审计字段值；匿名（ID=0）写 NULL
func (p Principal) ActorID() *int64 {
	if p.ID == 0 {
		return nil
	}
	id := p.ID
	return &id
}

func (p Principal) IsAdmin() bool { return p.AccessType == AccessAdmin }

// Scope 查询时显式选择包含哪些生命周期状态
type Scope int

const (
	ScopeActive Scope = iota // deleted_at IS NULL
	ScopeAll                 // 包含软删
)

// PageSize 列表固定每页条数
const PageSize = 20

type Page struct {
	Number int
	Size   int
}

// NewPage 归一化页码；size 固定为 PageSize
func NewPage(number int) Page {
	if number < 1 {
		number = 1
	}
	return Page{Number: number, Size: PageSize}
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

type PageResult[T any] struct {
	Items    []T   `json:"data"`
	Page     int   `json:"current_page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

func NewPageResult[T any](items []T, p Page, total int64) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	last := int((total + int64(p.Size) - 1) / int64(p.Size))
	if last < 1 {
		last = 1
	}
	return PageResult[T]{Items: items, Page: p.Number, PerPage: p.Size, Total: total, LastPage: last}
}
