package classifier

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// RandomClassifier placeholder model: picks a label at random with confidence
// in [50,100] and gives every other label a lower random confidence.
type RandomClassifier struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomClassifier seeds from the clock when rnd is nil
func NewRandomClassifier(rnd *rand.Rand) *RandomClassifier {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomClassifier{rnd: rnd}
}

func (c *RandomClassifier) Classify(ctx context.Context, _ []byte) (*Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	winner := Labels[c.rnd.Intn(len(Labels))]
	top := round2(50 + c.rnd.Float64()*50)

	preds := make([]Prediction, 0, len(Labels))
	preds = append(preds, Prediction{Label: winner, Confidence: top})
	for _, l := range Labels {
		if l == winner {
			continue
		}
		// strictly below top, also after rounding
		conf := math.Floor(c.rnd.Float64()*top*100) / 100
		if conf >= top {
			conf = top - 0.01
		}
		preds = append(preds, Prediction{Label: l, Confidence: conf})
	}
	sortPredictions(preds)

	return &Classification{Label: winner, Confidence: top, Predictions: preds}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
