// Package classifier labels recorded audio with one of a fixed set of noise classes.
package classifier

import (
	"context"
	"sort"
	"strings"
)

// Noise classes
const (
	LabelEngine      = "Engine"
	LabelCarHorn     = "Car Horn"
	LabelChainsaw    = "Chainsaw"
	LabelDrilling    = "Drilling"
	LabelHandsaw     = "Handsaw"
	LabelJackhammer  = "Jackhammer"
	LabelStreetMusic = "Street Music"
	LabelOthers      = "Others"
)

// Labels the full vocabulary, in canonical order
var Labels = []string{
	LabelEngine,
	LabelCarHorn,
	LabelChainsaw,
	LabelDrilling,
	LabelHandsaw,
	LabelJackhammer,
	LabelStreetMusic,
	LabelOthers,
}

// Prediction confidence for one label, in percent
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classification result of one Classify call.
// Predictions covers every label, sorted by descending confidence.
type Classification struct {
	Label       string       `json:"label"`
	Confidence  float64      `json:"confidence"`
	Predictions []Prediction `json:"predictions"`
}

// Classifier bytes in, label + ranked confidences out
type Classifier interface {
	Classify(ctx context.Context, audio []byte) (*Classification, error)
}

// IsLabel reports whether s is a known class (exact match)
func IsLabel(s string) bool {
	for _, l := range Labels {
		if l == s {
			return true
		}
	}
	return false
}

// CanonicalLabel matches s case-insensitively; unknown values map to Others
func CanonicalLabel(s string) string {
	s = strings.TrimSpace(s)
	for _, l := range Labels {
		if strings.EqualFold(l, s) {
			return l
		}
	}
	return LabelOthers
}

func sortPredictions(p []Prediction) {
	sort.SliceStable(p, func(i, j int) bool { return p[i].Confidence > p[j].Confidence })
}
