package service

import (
	"mystery_hunt_backend/internal/config"
	"sync"
)

// GameSettings 运行时可热更新的游戏规则
type GameSettings struct {
	mu  sync.RWMutex
	cfg config.GameConfig
}

func NewGameSettings(cfg config.GameConfig) *GameSettings {
	return &GameSettings{cfg: cfg}
}

func (s *GameSettings) Get() config.GameConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *GameSettings) Update(cfg config.GameConfig) {
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = 3
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}
