package normalize

import (
	"math"

	"wevolve/internal/types"
)

// OverallScore is the mean of all confidence values as a whole percent.
func OverallScore(scores map[string]float64) int {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return int(math.Round(sum / float64(len(scores)) * 100))
}

// Confidence badge levels shown next to reviewed fields
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// ConfidenceLevel buckets one field confidence for display.
func ConfidenceLevel(v float64) string {
	switch {
	case v >= 0.8:
		return LevelHigh
	case v >= 0.5:
		return LevelMedium
	default:
		return LevelLow
	}
}

// View assembles the review page payload for a profile.
func View(profile types.CandidateProfile, previewURL string) types.ProfileView {
	levels := make(map[string]string, len(profile.ConfidenceScores))
	for field, v := range profile.ConfidenceScores {
		levels[field] = ConfidenceLevel(v)
	}
	return types.ProfileView{
		Profile:      profile,
		OverallScore: OverallScore(profile.ConfidenceScores),
		Confidence:   levels,
		PreviewURL:   previewURL,
	}
}

// ReadinessLevel mirrors the backend's classification for replies that omit it.
func ReadinessLevel(readiness float64) string {
	switch {
	case readiness >= 80:
		return "High - Ready to apply"
	case readiness >= 60:
		return "Medium - Close to ready"
	case readiness >= 40:
		return "Low - Significant gaps"
	default:
		return "Very Low - Major upskilling needed"
	}
}
