package models

import (
	"fmt"
	"time"
)

// OpportunityKind classifies how an Opportunity was detected.
type OpportunityKind string

const (
	OpportunityKindSpatial     OpportunityKind = "spatial"
	OpportunityKindTriangular  OpportunityKind = "triangular"
	OpportunityKindStatistical OpportunityKind = "statistical"
)

// Opportunity is a single detection event emitted by one of the three
// detectors.
type Opportunity struct {
	Kind             OpportunityKind
	TokenPair        string
	BuyVenue         string
	SellVenue        string
	BuyPrice         float64
	SellPrice        float64
	NetProfitPercent float64
	RecommendedSize  uint64
	Confidence       float64
	DetectedAt       time.Time
}

// GrossProfitPercent recomputes the pre-cost spread between SellPrice and
// BuyPrice. Returns 0 when BuyPrice is 0 to avoid a division by zero.
func (o Opportunity) GrossProfitPercent() float64 {
	if o.BuyPrice == 0 {
		return 0
	}
	return (o.SellPrice - o.BuyPrice) / o.BuyPrice * 100.0
}

// IsValid reports whether the opportunity is still within maxAge of its
// detection time.
func (o Opportunity) IsValid(maxAge time.Duration) bool {
	return time.Since(o.DetectedAt) <= maxAge
}

func (o Opportunity) String() string {
	return fmt.Sprintf("%s: %s | buy %s @ %.6f -> sell %s @ %.6f | gross %.2f%% net %.2f%% (conf %.2f)",
		o.Kind, o.TokenPair, o.BuyVenue, o.BuyPrice, o.SellVenue, o.SellPrice, o.GrossProfitPercent(), o.NetProfitPercent, o.Confidence)
}
