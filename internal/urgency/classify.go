// Package urgency scores inbound message text for triage priority.
//
// Classification is a pure function: keyword tiers establish a base
// score, punctuation and all-caps boosters nudge it, and the final
// level is re-derived from the final numeric score.
package urgency

import (
	"regexp"
	"strings"

	"github.com/wanjiru/triagedesk/internal/domain"
)

// Result is the outcome of classifying one piece of text.
type Result struct {
	Score    int                 `json:"score"`
	Level    domain.UrgencyLevel `json:"level"`
	Keywords []string            `json:"keywords"`
}

const defaultScore = 3

var (
	repeatedMarks = regexp.MustCompile(`[!?]{2,}`)
	capsRun       = regexp.MustCompile(`[A-Z]{5,}`)
)

// Classify scores text on a 1-10 scale and assigns an urgency level.
// It always returns a result; empty or neutral text defaults to LOW.
func Classify(text string) Result {
	lower := strings.ToLower(text)

	score := defaultScore
	level := domain.UrgencyLow
	var matched []string

	for _, t := range tiers {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, kw)
				if t.score > score {
					score = t.score
					level = t.level
				}
			}
		}
	}

	// LOW keywords only matter when nothing higher matched.
	if level == domain.UrgencyLow {
		for _, kw := range lowKeywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, kw)
			}
		}
	}

	// Repeated !/? marks signal urgency; never push an already-HIGH
	// score further.
	if repeatedMarks.MatchString(text) && score < 8 {
		score = min(score+2, 10)
		if score >= 8 {
			level = domain.UrgencyHigh
		}
	}

	// A run of 5+ capital letters reads as shouting.
	if capsRun.MatchString(text) && score < 7 {
		score = min(score+1, 10)
	}

	// The level is re-derived from the final score, so a booster can
	// promote a keyword-assigned level.
	switch {
	case score >= 9:
		level = domain.UrgencyCritical
	case score >= 7:
		level = domain.UrgencyHigh
	case score >= 4:
		level = domain.UrgencyMedium
	}

	return Result{Score: score, Level: level, Keywords: matched}
}
