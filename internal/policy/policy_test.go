package policy

import (
	"testing"
	"time"

	"dipwatch/internal/models"
)

func entry(threshold float64) models.WatchlistEntry {
	return models.WatchlistEntry{Symbol: "AAPL", Threshold: threshold, Label: "Apple Inc."}
}

func obs(pctChange float64, volume, avgVolume int64) models.Observation {
	return models.Observation{
		Symbol:    "AAPL",
		Price:     100,
		PctChange: pctChange,
		Volume:    volume,
		AvgVolume: avgVolume,
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		threshold    float64
		obs          models.Observation
		lastAlert    *time.Time
		wantFire     bool
		wantSeverity models.Severity
	}{
		{
			name:         "qualifying dip with volume confirmation",
			threshold:    3.0,
			obs:          obs(-4.5, 150000, 100000),
			wantFire:     true,
			wantSeverity: models.SeverityDetected,
		},
		{
			name:         "major dip",
			threshold:    3.0,
			obs:          obs(-9.0, 150000, 100000),
			wantFire:     true,
			wantSeverity: models.SeverityMajor,
		},
		{
			name:         "significant dip",
			threshold:    3.0,
			obs:          obs(-6.0, 150000, 100000),
			wantFire:     true,
			wantSeverity: models.SeveritySignificant,
		},
		{
			name:      "drop below threshold does not fire",
			threshold: 5.0,
			obs:       obs(-4.9, 150000, 100000),
			wantFire:  false,
		},
		{
			name:      "positive change does not fire",
			threshold: 3.0,
			obs:       obs(2.0, 150000, 100000),
			wantFire:  false,
		},
		{
			name:      "volume ratio below bar suppresses qualifying dip",
			threshold: 3.0,
			obs:       obs(-6.0, 110000, 100000),
			wantFire:  false,
		},
		{
			name:      "volume ratio exactly at bar does not fire",
			threshold: 3.0,
			obs:       obs(-6.0, 120000, 100000),
			wantFire:  false,
		},
		{
			name:         "missing average volume counts as neutral ratio",
			threshold:    3.0,
			obs:          obs(-6.0, 150000, 0),
			wantFire:     false,
			wantSeverity: models.SeveritySignificant,
		},
		{
			name:         "dip exactly at threshold fires",
			threshold:    4.5,
			obs:          obs(-4.5, 150000, 100000),
			wantFire:     true,
			wantSeverity: models.SeverityDetected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fire, severity := Evaluate(entry(tt.threshold), tt.obs, tt.lastAlert, now)
			if fire != tt.wantFire {
				t.Errorf("fire = %v, want %v", fire, tt.wantFire)
			}
			if tt.wantFire && severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", severity, tt.wantSeverity)
			}
		})
	}
}

func TestEvaluateCooldown(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	qualifying := obs(-4.5, 150000, 100000)

	tests := []struct {
		name      string
		lastAlert time.Duration // how long before now the last alert fired
		wantFire  bool
	}{
		{"alert one hour ago suppressed", time.Hour, false},
		{"alert three hours ago suppressed", 3 * time.Hour, false},
		{"alert exactly four hours ago fires", 4 * time.Hour, true},
		{"alert just past four hours fires", 4*time.Hour + time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := now.Add(-tt.lastAlert)
			fire, _ := Evaluate(entry(3.0), qualifying, &last, now)
			if fire != tt.wantFire {
				t.Errorf("fire = %v, want %v", fire, tt.wantFire)
			}
		})
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		pctChange float64
		want      models.Severity
	}{
		{-9.0, models.SeverityMajor},
		{-8.0, models.SeverityMajor}, // boundary is inclusive
		{-7.9, models.SeveritySignificant},
		{-5.0, models.SeveritySignificant},
		{-4.9, models.SeverityDetected},
		{-0.1, models.SeverityDetected},
	}

	for _, tt := range tests {
		if got := Classify(tt.pctChange); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.pctChange, got, tt.want)
		}
	}
}

func TestEvaluateIsPure(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	e := entry(3.0)
	o := obs(-4.5, 150000, 100000)

	fire1, sev1 := Evaluate(e, o, nil, now)
	fire2, sev2 := Evaluate(e, o, nil, now)

	if fire1 != fire2 || sev1 != sev2 {
		t.Errorf("repeated evaluation diverged: (%v,%s) vs (%v,%s)", fire1, sev1, fire2, sev2)
	}
}
