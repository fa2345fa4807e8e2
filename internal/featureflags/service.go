package featureflags

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/transport"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	// Repository stores flags. Defaults to an in-memory repository seeded
	// with DefaultFlags.
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long flags are served from memory (default: 1 minute).
	CacheTTL     time.Duration
	DefaultFlags map[string]*Flag
}

// Service evaluates feature flags with caching and fallback to defaults.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.DefaultFlags == nil {
		cfg.DefaultFlags = DefaultFlags()
	}
	if cfg.Repository == nil {
		cfg.Repository = NewInMemoryRepository()
	}

	return &Service{
		repo:         cfg.Repository,
		logger:       cfg.Logger,
		cacheTTL:     cfg.CacheTTL,
		defaultFlags: cfg.DefaultFlags,
		cache:        make(map[string]*Flag),
	}
}

// GetFlag returns the flag for key from the cache, the repository, or the
// defaults, in that order. Nil when the key is unknown everywhere.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if flag := s.getCached(key); flag != nil {
		return flag
	}

	flag, err := s.repo.GetFlag(ctx, key)
	if err == nil {
		s.setCached(key, flag)
		return flag
	}

	if !errors.Is(err, ErrFlagNotFound) {
		s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
	}

	return s.defaultFlags[key]
}

// GetAllFlags returns repository flags merged over the defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	result := maps.Clone(s.defaultFlags)

	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}
	maps.Copy(result, flags)

	s.mu.Lock()
	s.cache = flags
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return result
}

// SetFlag updates a feature flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	flag.UpdatedAt = time.Now()
	if err := s.repo.SetFlag(ctx, flag); err != nil {
		return err
	}
	s.setCached(flag.Key, flag)
	return nil
}

// SetFlags updates several flags atomically.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}

	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	s.mu.Lock()
	for _, flag := range flags {
		s.cache[flag.Key] = flag
	}
	s.mu.Unlock()

	return nil
}

// InvalidateCache clears the cached flags, forcing a refresh on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

// IsEnabled reports whether a boolean flag is set.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

func (s *Service) getCached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	return s.cache[key]
}

func (s *Service) setCached(key string, flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = flag
	if s.cacheExpiry.Before(time.Now()) {
		s.cacheExpiry = time.Now().Add(s.cacheTTL)
	}
}

// DisabledModes returns the transport modes switched off at runtime.
// Unknown mode names are logged and ignored.
func (s *Service) DisabledModes(ctx context.Context) []transport.Mode {
	names := s.GetFlag(ctx, FlagDisabledModes).StringsValue()

	modes := make([]transport.Mode, 0, len(names))
	for _, name := range names {
		m, err := transport.ParseMode(name)
		if err != nil {
			s.logger.Warn().Str("mode", name).Msg("ignoring unknown mode in disabled_modes flag")
			continue
		}
		modes = append(modes, m)
	}
	return modes
}

// LiveConditionsDisabled reports whether transport mixes skip condition lookups.
func (s *Service) LiveConditionsDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagLiveConditionsDisabled)
}

// MonitoringAlertsDisabled reports whether alert publishing is switched off.
func (s *Service) MonitoringAlertsDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagMonitoringAlertsDisabled)
}

// Policy returns the default scoring policy with any stored overrides
// applied. A malformed override is logged and ignored.
func (s *Service) Policy(ctx context.Context) transport.Policy {
	policy := transport.DefaultPolicy()

	var overrides transport.Policy
	if err := s.GetFlag(ctx, FlagPolicyOverrides).JSONValue(&overrides); err != nil {
		s.logger.Warn().Err(err).Msg("ignoring malformed policy_overrides flag")
		return policy
	}
	return policy.WithOverrides(overrides)
}
