package models

import (
	"fmt"
	"strings"
	"time"
)

// Severity classifies a dip alert by the magnitude of the drop
type Severity string

const (
	SeverityDetected    Severity = "DETECTED"
	SeveritySignificant Severity = "SIGNIFICANT"
	SeverityMajor       Severity = "MAJOR"
)

// IsValid checks if the severity level is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityDetected, SeveritySignificant, SeverityMajor:
		return true
	default:
		return false
	}
}

// Banner returns the alert headline for this severity
func (s Severity) Banner() string {
	switch s {
	case SeverityMajor:
		return "🚨 MAJOR DIP ALERT"
	case SeveritySignificant:
		return "⚠️ SIGNIFICANT DIP"
	default:
		return "📉 DIP DETECTED"
	}
}

// Alert is a fired dip alert, ready for delivery
type Alert struct {
	// Unique identifier for the alert event
	ID string `json:"id"`

	// Ticker symbol the alert is about
	Symbol string `json:"symbol"`

	// Company name from the watchlist entry
	Label string `json:"label"`

	// Severity tier of the dip
	Severity Severity `json:"severity"`

	// Threshold that was crossed, in percent
	Threshold float64 `json:"threshold"`

	// Market snapshot that triggered the alert
	Observation Observation `json:"observation"`

	// When the alert fired
	FiredAt time.Time `json:"fired_at"`
}

// Message renders the alert as the delivery text
func (a *Alert) Message() string {
	obs := a.Observation

	maDistance := 0.0
	if obs.MovingAvg20 > 0 {
		maDistance = ((obs.Price - obs.MovingAvg20) / obs.MovingAvg20) * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", a.Severity.Banner())
	fmt.Fprintf(&b, "📈 %s (%s)\n\n", a.Label, a.Symbol)
	fmt.Fprintf(&b, "💰 Current Price: $%.2f\n", obs.Price)
	fmt.Fprintf(&b, "📊 Change: %+.2f%%\n", obs.PctChange)
	fmt.Fprintf(&b, "📅 Previous Close: $%.2f\n\n", obs.PreviousClose)
	fmt.Fprintf(&b, "📋 Analysis:\n")
	fmt.Fprintf(&b, "• 20-day MA: $%.2f (%+.1f%% from MA)\n", obs.MovingAvg20, maDistance)
	fmt.Fprintf(&b, "• Volume: %s (%.1fx avg)\n", groupDigits(obs.Volume), obs.VolumeRatio())
	fmt.Fprintf(&b, "• Alert Threshold: %g%%\n\n", a.Threshold)
	fmt.Fprintf(&b, "🕐 Time: %s", a.FiredAt.Format("2006-01-02 15:04:05"))
	return b.String()
}

// groupDigits formats an integer with comma thousands separators
func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
		if len(s) > lead {
			b.WriteString(",")
		}
	}
	for i := lead; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteString(",")
		}
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
