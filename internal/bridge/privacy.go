package bridge

import (
	"fmt"
	"strings"

	"shadowScope/internal/model"
)

// PrivacyLevel names one of the node's mixing presets.
type PrivacyLevel string

const (
	Fast     PrivacyLevel = "fast"
	Standard PrivacyLevel = "standard"
	Maximum  PrivacyLevel = "maximum"
)

var privacyConfigs = map[PrivacyLevel]model.PrivacyConfig{
	Fast:     {Hops: 5, DecoyMultiplier: 5, DelayHours: 0.017, SplitCount: 1},
	Standard: {Hops: 10, DecoyMultiplier: 10, DelayHours: 1, SplitCount: 1},
	Maximum:  {Hops: 20, DecoyMultiplier: 20, DelayHours: 24, SplitCount: 3},
}

// PrivacyLevels lists the presets from fastest to most private.
func PrivacyLevels() []PrivacyLevel {
	return []PrivacyLevel{Fast, Standard, Maximum}
}

func ParsePrivacyLevel(value string) (PrivacyLevel, error) {
	level := PrivacyLevel(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := privacyConfigs[level]; !ok {
		return "", &model.ValidationError{
			Field:  "privacy_level",
			Reason: fmt.Sprintf("unknown level %q (expected fast, standard or maximum)", value),
		}
	}
	return level, nil
}

// Config returns the preset the node applies for the level.
func (l PrivacyLevel) Config() (model.PrivacyConfig, bool) {
	cfg, ok := privacyConfigs[l]
	return cfg, ok
}
