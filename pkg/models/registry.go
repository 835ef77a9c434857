// Package models: провайдеры LLM по ролям.
//
// Чат, OCR и summary memory могут работать на разных моделях из
// models.definitions. Роль привязывается к алиасу в config.yaml
// (default_chat, default_vision, default_summary); непривязанная
// роль берёт модель чата.
package models

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/factory"
	"github.com/ilkoid/poncho-assist/pkg/llm"
)

// Role: для чего используется модель.
type Role string

const (
	RoleChat    Role = "chat"
	RoleVision  Role = "vision"
	RoleSummary Role = "summary"
)

type entry struct {
	provider llm.Provider
	def      config.ModelDef
}

// Registry хранит провайдеры по алиасам и привязку ролей к алиасам.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]entry
	roles  map[Role]string
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]entry),
		roles:  make(map[Role]string),
	}
}

// Register добавляет модель. Повторный алиас: ошибка.
func (r *Registry) Register(alias string, def config.ModelDef, provider llm.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[alias]; exists {
		return fmt.Errorf("model '%s' already registered", alias)
	}
	r.byName[alias] = entry{provider: provider, def: def}
	return nil
}

// Bind привязывает роль к зарегистрированному алиасу.
func (r *Registry) Bind(role Role, alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[alias]; !ok {
		return fmt.Errorf("cannot bind %s role: model '%s' not found in registry", role, alias)
	}
	r.roles[role] = alias
	return nil
}

// Get возвращает провайдер по алиасу.
func (r *Registry) Get(alias string) (llm.Provider, config.ModelDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[alias]
	if !ok {
		return nil, config.ModelDef{}, fmt.Errorf("model '%s' not found in registry", alias)
	}
	return e.provider, e.def, nil
}

// For возвращает провайдер роли; непривязанная роль берёт RoleChat.
func (r *Registry) For(role Role) (llm.Provider, config.ModelDef, error) {
	r.mu.RLock()
	alias, ok := r.roles[role]
	if !ok {
		alias, ok = r.roles[RoleChat]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, config.ModelDef{}, fmt.Errorf("no model bound to %s role", role)
	}
	return r.Get(alias)
}

// ListNames возвращает отсортированные алиасы.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig создаёт провайдер для каждой модели из
// models.definitions и привязывает роли. Ошибка любой модели
// прерывает сборку.
func NewRegistryFromConfig(cfg *config.AppConfig) (*Registry, error) {
	reg := NewRegistry()

	for alias, def := range cfg.Models.Definitions {
		provider, err := factory.NewLLMProvider(def)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider for model '%s': %w", alias, err)
		}
		if err := reg.Register(alias, def, provider); err != nil {
			return nil, err
		}
	}

	bindings := []struct {
		role  Role
		alias string
	}{
		{RoleChat, cfg.Models.DefaultChat},
		{RoleVision, cfg.VisionAlias()},
		{RoleSummary, cfg.SummaryAlias()},
	}
	for _, b := range bindings {
		if b.alias == "" {
			continue
		}
		if err := reg.Bind(b.role, b.alias); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
