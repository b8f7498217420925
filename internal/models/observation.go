package models

import "time"

// Observation is a point-in-time market snapshot for one symbol.
// Immutable once produced; derived entirely from a single fetch.
type Observation struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	PctChange     float64   `json:"pct_change"`
	Volume        int64     `json:"volume"`
	AvgVolume     int64     `json:"avg_volume"`
	MovingAvg20   float64   `json:"ma_20"`
	ObservedAt    time.Time `json:"observed_at"`
}

// VolumeRatio returns volume relative to average volume. Symbols with no
// average volume data report a neutral 1.0.
func (o *Observation) VolumeRatio() float64 {
	if o.AvgVolume <= 0 {
		return 1.0
	}
	return float64(o.Volume) / float64(o.AvgVolume)
}
