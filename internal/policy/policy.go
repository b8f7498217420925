package policy

import (
	"time"

	"dipwatch/internal/models"
)

// Policy constants
const (
	// CooldownWindow is the minimum time between two alerts for one symbol
	CooldownWindow = 4 * time.Hour

	// VolumeConfirmRatio is the volume-vs-average bar a dip must clear
	VolumeConfirmRatio = 1.2

	// Severity boundaries in percent change; inclusive into the stricter tier
	MajorDipPct       = -8.0
	SignificantDipPct = -5.0
)

// Evaluate decides whether an observation should fire a dip alert for the
// given watchlist entry, and with which severity. It is a pure function:
// deterministic given its inputs, no side effects.
//
// A nil lastAlert means the symbol has never alerted.
func Evaluate(entry models.WatchlistEntry, obs models.Observation, lastAlert *time.Time, now time.Time) (bool, models.Severity) {
	severity := Classify(obs.PctChange)

	// Dip condition
	if obs.PctChange > -entry.Threshold {
		return false, severity
	}

	// Volume confirmation
	if obs.VolumeRatio() <= VolumeConfirmRatio {
		return false, severity
	}

	// Cooldown suppression
	if lastAlert != nil && now.Sub(*lastAlert) < CooldownWindow {
		return false, severity
	}

	return true, severity
}

// Classify maps a percent change to a severity tier
func Classify(pctChange float64) models.Severity {
	switch {
	case pctChange <= MajorDipPct:
		return models.SeverityMajor
	case pctChange <= SignificantDipPct:
		return models.SeveritySignificant
	default:
		return models.SeverityDetected
	}
}

// InCooldown reports whether a symbol last alerted within the cooldown window
func InCooldown(lastAlert *time.Time, now time.Time) bool {
	return lastAlert != nil && now.Sub(*lastAlert) < CooldownWindow
}
