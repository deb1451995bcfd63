package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/rules"
)

// classificationFile mirrors the persisted JSON layout
type classificationFile struct {
	PlacementSenders []string          `mapstructure:"placement_senders"`
	PlacementHints   []string          `mapstructure:"placement_hints"`
	Keywords         core.KeywordTiers `mapstructure:"keywords"`
	AppliedCompanies []string          `mapstructure:"applied_companies"`
	Identifiers      []string          `mapstructure:"identifiers"`
	Thresholds       core.Thresholds   `mapstructure:"thresholds"`
	Profile          struct {
		Email       string   `mapstructure:"email"`
		Identifiers []string `mapstructure:"identifiers"`
	} `mapstructure:"profile"`
}

var validate = validator.New()

// LoadClassification reads the classification config file. A missing file
// yields the built-in defaults; a present but invalid file is an error.
func LoadClassification(path string, logger *zap.Logger) (core.ClassificationConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path == "" {
		return rules.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("Classification config not found, using defaults", zap.String("path", path))
			return rules.DefaultConfig(), nil
		}
		return core.ClassificationConfig{}, fmt.Errorf("failed to stat classification config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	defaults := rules.DefaultThresholds()
	v.SetDefault("thresholds.super", defaults.Super)
	v.SetDefault("thresholds.urgent", defaults.Urgent)
	v.SetDefault("thresholds.mid", defaults.Mid)
	v.SetDefault("thresholds.low", defaults.Low)

	if err := v.ReadInConfig(); err != nil {
		return core.ClassificationConfig{}, fmt.Errorf("failed to read classification config: %w", err)
	}

	var file classificationFile
	if err := v.Unmarshal(&file); err != nil {
		return core.ClassificationConfig{}, fmt.Errorf("failed to decode classification config: %w", err)
	}

	if err := validate.Struct(file.Thresholds); err != nil {
		return core.ClassificationConfig{}, fmt.Errorf("invalid thresholds: %w", err)
	}

	cfg := core.ClassificationConfig{
		PlacementSenders: file.PlacementSenders,
		PlacementHints:   file.PlacementHints,
		Keywords:         file.Keywords,
		AppliedCompanies: file.AppliedCompanies,
		Identifiers:      append(append([]string(nil), file.Identifiers...), file.Profile.Identifiers...),
		RecipientToken:   recipientToken(file.Profile.Email),
		Thresholds:       file.Thresholds,
	}
	cfg = rules.WithDefaults(cfg)

	logger.Info("Loaded classification config",
		zap.String("path", path),
		zap.Int("placement_senders", len(cfg.PlacementSenders)),
		zap.Int("applied_companies", len(cfg.AppliedCompanies)),
		zap.Int("identifiers", len(cfg.Identifiers)))

	return cfg, nil
}

// recipientToken is the local part of the user's address
func recipientToken(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
