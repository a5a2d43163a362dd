package service

import (
	"math"
	"time"

	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
)

const timeDecayHalfLife = 7 * 24 * time.Hour

const (
	positionEndpointWeight = 0.4
	positionMiddleShare    = 0.2
)

// distributeWeights spreads conversion credit over the candidate clicks,
// which must be ordered ascending by creation time. It returns the weighted
// path and the index of the primary click (the one consumed and linked on
// the conversion record).
func distributeWeights(model conversiondomain.AttributionModel, clicks []clickdomain.ReferralClick, now time.Time) ([]conversiondomain.PathEntry, int) {
	n := len(clicks)
	if n == 0 {
		return nil, -1
	}

	entries := make([]conversiondomain.PathEntry, n)
	for i, c := range clicks {
		entries[i] = conversiondomain.PathEntry{
			ClickID:   c.ID,
			Timestamp: c.CreatedAt,
		}
	}

	primary := n - 1

	switch model {
	case conversiondomain.ModelFirstTouch:
		entries[0].Weight = 1.0
		primary = 0

	case conversiondomain.ModelLastTouch:
		entries[n-1].Weight = 1.0

	case conversiondomain.ModelLinear:
		// Last click stays primary for display; credit is even.
		w := 1.0 / float64(n)
		for i := range entries {
			entries[i].Weight = w
		}

	case conversiondomain.ModelTimeDecay:
		raws := make([]float64, n)
		var total float64
		for i, c := range clicks {
			age := now.Sub(c.CreatedAt)
			if age < 0 {
				age = 0
			}
			raws[i] = decay(age)
			total += raws[i]
		}
		if total <= 0 {
			// Degenerate ages; fall back to last-touch credit.
			entries[n-1].Weight = 1.0
			break
		}
		for i := range entries {
			entries[i].Weight = raws[i] / total
		}

	case conversiondomain.ModelPositionBased:
		switch n {
		case 1:
			entries[0].Weight = 1.0
		case 2:
			entries[0].Weight = positionEndpointWeight
			entries[1].Weight = positionEndpointWeight
		default:
			entries[0].Weight = positionEndpointWeight
			entries[n-1].Weight = positionEndpointWeight
			middle := positionMiddleShare / float64(n-2)
			for i := 1; i < n-1; i++ {
				entries[i].Weight = middle
			}
		}

	default:
		entries[n-1].Weight = 1.0
	}

	return entries, primary
}

// decay halves a click's raw weight every seven days of age.
func decay(age time.Duration) float64 {
	return math.Pow(0.5, float64(age.Milliseconds())/float64(timeDecayHalfLife.Milliseconds()))
}
