package router

import "github.com/gin-gonic/gin"

// Module is a feature area that mounts its own routes on the shared
// /api group. Each module decides which of its routes sit behind the
// session middleware.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules and mounts them in one pass so route
// registration order is explicit and testable.
type Registry struct {
	Engine  *gin.Engine
	API     *gin.RouterGroup
	shared  []gin.HandlerFunc
	modules []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Use adds middleware applied to every API route, ahead of whatever
// the modules attach themselves.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.shared = append(r.shared, mw...)
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// RegisterAll mounts the shared middleware and every added module.
// Call once, after all Add calls.
func (r *Registry) RegisterAll() {
	if len(r.shared) > 0 {
		r.API.Use(r.shared...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
