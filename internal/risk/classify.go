// Package risk scores messages and maps scores to threat levels.
package risk

import (
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
)

// Score thresholds. A score strictly above a threshold moves into the next level.
const (
	MediumThreshold   = 40.0
	HighThreshold     = 70.0
	CriticalThreshold = 85.0

	// BlockThreshold is the score above which mail is held for admin review
	BlockThreshold = HighThreshold

	MinScore = 0.0
	MaxScore = 100.0
)

// Classify maps a risk score to its threat level.
// It is total and monotonic: out-of-range scores clamp to the nearest bound.
func Classify(score float64) models.ThreatLevel {
	switch {
	case score > CriticalThreshold:
		return models.ThreatCritical
	case score > HighThreshold:
		return models.ThreatHigh
	case score > MediumThreshold:
		return models.ThreatMedium
	default:
		return models.ThreatLow
	}
}

// ShouldBlock reports whether a score sends mail to admin review
func ShouldBlock(score float64) bool {
	return score > BlockThreshold
}
