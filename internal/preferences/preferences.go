// Package preferences stores the ledger's user settings.
package preferences

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/hisab/hisab-ledger/internal/shared"
)

// Redis keys of each setting.
const (
	KeyAutoBackup       = "hisab_pref_autoBackup"
	KeyAnalyticsEnabled = "hisab_pref_analyticsEnabled"
)

// Preferences are the user's settings.
type Preferences struct {
	AutoBackup       bool `json:"autoBackup"`
	AnalyticsEnabled bool `json:"analyticsEnabled"`
}

// Defaults returns the settings of a fresh installation.
func Defaults() Preferences {
	return Preferences{AutoBackup: false, AnalyticsEnabled: true}
}

// Patch carries a partial settings update.
type Patch struct {
	AutoBackup       *bool `json:"autoBackup"`
	AnalyticsEnabled *bool `json:"analyticsEnabled"`
}

// Service loads and saves preferences in Redis.
type Service struct {
	client *redis.Client
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(client *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// Load returns the stored preferences. Store failures fall back to the
// defaults.
func (s *Service) Load(ctx context.Context) Preferences {
	prefs := Defaults()
	values, err := s.client.MGet(ctx, KeyAutoBackup, KeyAnalyticsEnabled).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("load preferences", slog.Any("error", err))
		return prefs
	}
	if v, ok := parseBool(values, 0); ok {
		prefs.AutoBackup = v
	}
	if v, ok := parseBool(values, 1); ok {
		prefs.AnalyticsEnabled = v
	}
	return prefs
}

// Save writes the supplied fields and returns the resulting preferences.
func (s *Service) Save(ctx context.Context, p Patch) (Preferences, error) {
	pipe := s.client.TxPipeline()
	if p.AutoBackup != nil {
		pipe.Set(ctx, KeyAutoBackup, strconv.FormatBool(*p.AutoBackup), 0)
	}
	if p.AnalyticsEnabled != nil {
		pipe.Set(ctx, KeyAnalyticsEnabled, strconv.FormatBool(*p.AnalyticsEnabled), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Preferences{}, shared.WrapStorage("preferences: save", err, false)
	}
	return s.Load(ctx), nil
}

// AutoBackup reports whether scheduled backups are enabled.
func (s *Service) AutoBackup(ctx context.Context) bool {
	return s.Load(ctx).AutoBackup
}

// AnalyticsEnabled reports whether sale metrics are collected.
func (s *Service) AnalyticsEnabled(ctx context.Context) bool {
	return s.Load(ctx).AnalyticsEnabled
}

func parseBool(values []any, i int) (bool, bool) {
	if i >= len(values) {
		return false, false
	}
	raw, ok := values[i].(string)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
