package config

import (
	"sync"

	"payoutor/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Store holds the live configuration snapshot. Watch swaps the snapshot when
// the config file changes on disk, so payout policy edits (ratios, council
// threshold) take effect without a restart.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

func NewStore(path string, cfg *Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Snapshot returns the current config. The returned value must be treated as
// read-only; a reload replaces the pointer rather than mutating in place.
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Watch reloads the config whenever the file changes. A reload that fails to
// parse or validate keeps the previous snapshot.
func (s *Store) Watch() {
	if s == nil || s.path == "" {
		return
	}
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		logger.Debugf("config watch disabled, cannot read %s: %v", s.path, err)
		return
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		cfg, err := Load(s.path)
		if err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		s.mu.Lock()
		s.cfg = cfg
		s.mu.Unlock()
		logger.Infof("config reloaded: ratios %.2f/%.2f threshold=%d",
			cfg.Payout.GlmrRatio, cfg.Payout.MovrRatio, cfg.Payout.CouncilThreshold)
	})
	v.WatchConfig()
}
