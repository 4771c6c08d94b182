package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64 // time decay exponent
	WeightComment  float64
	WeightUpvote   float64
	WeightDownvote float64
	ScaleFactor    float64
}

var DefaultRankConfig = RankConfig{
	Gravity:        1.5,
	WeightComment:  2.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	ScaleFactor:    100.0,
}

// HotScore ranks a post for the "hot" listing. Interaction is log-smoothed
// and then decayed by age in hours, so a fresh post with a few votes can
// outrank an old one with many.
func HotScore(createdAt, now time.Time, up, down, comments int64) float64 {
	cfg := DefaultRankConfig
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}

	weighted := float64(up)*cfg.WeightUpvote +
		float64(comments)*cfg.WeightComment -
		float64(down)*cfg.WeightDownvote
	if weighted < 0 {
		weighted = 0
	}

	numerator := math.Log10(weighted+1) * cfg.ScaleFactor
	return numerator / math.Pow(hours+2, cfg.Gravity)
}
