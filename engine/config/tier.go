package config

import (
	"strings"

	"github.com/pkg/errors"
)

// Tier is the deployment environment. Tiers share infrastructure and are isolated by table naming and id filtering.
type Tier int

const (
	// UnknownTier means the tier is not configured yet
	UnknownTier Tier = iota
	// DevelopmentTier is the development deployment
	DevelopmentTier
	// TestTier is the test deployment
	TestTier
	// ProductionTier is the production deployment
	ProductionTier
)

var tierNames = map[Tier]string{
	UnknownTier:     "Unknown",
	DevelopmentTier: "Development",
	TestTier:        "Test",
	ProductionTier:  "Production",
}

// String returns the tier name used in singleton ids
func (t Tier) String() string {
	return tierNames[t]
}

// Affix returns the table name prefix of the tier
func (t Tier) Affix() string {
	switch t {
	case TestTier:
		return "t"
	case ProductionTier:
		return "p"
	default:
		return "d"
	}
}

// QueuePrefix returns the upper-case affix prefixing queue and topic names
func (t Tier) QueuePrefix() string {
	return strings.ToUpper(t.Affix())
}

// MarshalText implements encoding.TextMarshaler
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTier parses development/test/production (case-insensitive, d/t/p accepted)
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev", "d":
		return DevelopmentTier, nil
	case "test", "t":
		return TestTier, nil
	case "production", "prod", "p":
		return ProductionTier, nil
	}
	return UnknownTier, errors.Errorf("unknown deployment tier: %q", s)
}

const siteNamePrefix = "saganetwork-"

// TierFromSiteName derives the tier from a hosting site name such as saganetwork-t.
// Unrecognized names, including an empty one when hosting locally, are development.
func TierFromSiteName(siteName string) Tier {
	siteName = strings.ToLower(siteName)
	switch {
	case strings.Contains(siteName, siteNamePrefix+"d"):
		return DevelopmentTier
	case strings.Contains(siteName, siteNamePrefix+"t"):
		return TestTier
	case strings.Contains(siteName, siteNamePrefix+"p"):
		return ProductionTier
	default:
		return DevelopmentTier
	}
}
