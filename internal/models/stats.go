package models

import "time"

// PairStatistics tracks the rolling cointegration spread between two
// correlated pairs on a single venue, used by the statistical detector.
type PairStatistics struct {
	Beta      float64
	History   []float64
	Mean      float64
	StdDev    float64
	UpdatedAt time.Time
}

// NewPairStatistics returns a PairStatistics with the default beta of 1.0
// until recalibrated.
func NewPairStatistics() *PairStatistics {
	return &PairStatistics{Beta: 1.0}
}
