package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Settings are the tunable runtime parameters of the pipeline. Compiled
// defaults are overlaid with rows from the database config table, so
// changes made through the API survive restarts.
type Settings struct {
	MinEdgeThreshold         float64 `json:"min_edge_threshold"`
	MinVolume                float64 `json:"min_volume"`
	KellyFraction            float64 `json:"kelly_fraction"`
	MaxSingleBetFraction     float64 `json:"max_single_bet_fraction"`
	ReEstimateTrigger        float64 `json:"re_estimate_trigger"`
	Bankroll                 float64 `json:"bankroll"`
	MarketsPerScan           int     `json:"markets_per_scan"`
	WebSearchMaxUses         int     `json:"web_search_max_uses"`
	EstimateCacheHours       int     `json:"estimate_cache_hours"`
	MaxCloseHours            int     `json:"max_close_hours"`
	ScanTimes                []int   `json:"scan_times"`
	AutoTradeEnabled         bool    `json:"auto_trade_enabled"`
	AutoTradeMinEV           float64 `json:"auto_trade_min_ev"`
	MaxBet                   float64 `json:"max_bet"`
	NotificationMinEV        float64 `json:"notification_min_ev"`
	HighValueVolumeThreshold float64 `json:"high_value_volume_threshold"`
	MaxExposureFraction      float64 `json:"max_exposure_fraction"`
	BatchResearchEnabled     bool    `json:"batch_research_enabled"`
}

// DefaultSettings returns the compiled-in defaults.
func DefaultSettings() Settings {
	return Settings{
		MinEdgeThreshold:         0.03,
		MinVolume:                50000,
		KellyFraction:            0.33,
		MaxSingleBetFraction:     0.05,
		ReEstimateTrigger:        0.05,
		Bankroll:                 10000,
		MarketsPerScan:           100,
		WebSearchMaxUses:         5,
		EstimateCacheHours:       20,
		MaxCloseHours:            48,
		ScanTimes:                []int{8},
		AutoTradeEnabled:         false,
		AutoTradeMinEV:           0.05,
		MaxBet:                   100,
		NotificationMinEV:        0.08,
		HighValueVolumeThreshold: 100000,
		MaxExposureFraction:      0.25,
		BatchResearchEnabled:     false,
	}
}

// ApplyOverride sets a single field from its config-table key and string
// value. Unknown keys and unparseable values are reported, not applied.
func (s *Settings) ApplyOverride(key, value string) error {
	switch key {
	case "min_edge_threshold":
		return setFloat(&s.MinEdgeThreshold, value)
	case "min_volume":
		return setFloat(&s.MinVolume, value)
	case "kelly_fraction":
		return setFloat(&s.KellyFraction, value)
	case "max_single_bet_fraction":
		return setFloat(&s.MaxSingleBetFraction, value)
	case "re_estimate_trigger":
		return setFloat(&s.ReEstimateTrigger, value)
	case "bankroll":
		return setFloat(&s.Bankroll, value)
	case "markets_per_scan":
		return setInt(&s.MarketsPerScan, value)
	case "web_search_max_uses":
		return setInt(&s.WebSearchMaxUses, value)
	case "estimate_cache_hours":
		return setInt(&s.EstimateCacheHours, value)
	case "max_close_hours":
		return setInt(&s.MaxCloseHours, value)
	case "scan_times":
		hours, err := ParseScanTimes(value)
		if err != nil {
			return err
		}
		s.ScanTimes = hours
		return nil
	case "auto_trade_enabled":
		return setBool(&s.AutoTradeEnabled, value)
	case "auto_trade_min_ev":
		return setFloat(&s.AutoTradeMinEV, value)
	case "max_bet":
		return setFloat(&s.MaxBet, value)
	case "notification_min_ev":
		return setFloat(&s.NotificationMinEV, value)
	case "high_value_volume_threshold":
		return setFloat(&s.HighValueVolumeThreshold, value)
	case "max_exposure_fraction":
		return setFloat(&s.MaxExposureFraction, value)
	case "batch_research_enabled":
		return setBool(&s.BatchResearchEnabled, value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
}

// ParseScanTimes parses a comma-separated list of hours ("8" or "8,14,20").
func ParseScanTimes(value string) ([]int, error) {
	trimmed := strings.Trim(strings.TrimSpace(value), "[]")
	if trimmed == "" {
		return nil, fmt.Errorf("scan_times cannot be empty")
	}

	parts := strings.Split(trimmed, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid scan hour %q: %w", p, err)
		}
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("scan hour %d out of range", h)
		}
		hours = append(hours, h)
	}

	return hours, nil
}

// FormatScanTimes renders hours back to the config-table representation.
func FormatScanTimes(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}

	return strings.Join(parts, ",")
}

func setFloat(dst *float64, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid float %q: %w", value, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite value %q", value)
	}
	*dst = f

	return nil
}

func setInt(dst *int, value string) error {
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid int %q: %w", value, err)
	}
	*dst = i

	return nil
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid bool %q: %w", value, err)
	}
	*dst = b

	return nil
}
