package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// Groups 挂载点：Public 无需登录，Authed 已走 AuthJWT
type Groups struct {
	Public *gin.RouterGroup
	Authed *gin.RouterGroup
}

// 模块可选择实现其中一个或两个接口
type APIModule interface{ MountAPI(Groups) }
type AdminModule interface{ MountAdmin(Groups) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂），不实现默认 100
type prioritizer interface{ Priority() int }

// Registry 每个进程一份，由 main 组装
type Registry struct {
	mu        sync.RWMutex
	apiMods   []APIModule
	adminMods []AdminModule
}

func NewRegistry(mods ...any) *Registry {
	r := &Registry{}
	r.Register(mods...)
	return r
}

// Register 根据类型断言分发到 API/Admin 列表
func (r *Registry) Register(mods ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mod := range mods {
		if m, ok := mod.(APIModule); ok {
			r.apiMods = append(r.apiMods, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.adminMods = append(r.adminMods, m)
		}
	}
}

func (r *Registry) MountAPI(g Groups) {
	r.mu.RLock()
	mods := append([]APIModule(nil), r.apiMods...)
	r.mu.RUnlock()

	sortByPriority(mods)
	for _, m := range mods {
		m.MountAPI(g)
	}
}

func (r *Registry) MountAdmin(g Groups) {
	r.mu.RLock()
	mods := append([]AdminModule(nil), r.adminMods...)
	r.mu.RUnlock()

	sortByPriority(mods)
	for _, m := range mods {
		m.MountAdmin(g)
	}
}

func sortByPriority[T any](mods []T) {
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
