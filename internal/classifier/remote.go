package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// remoteResponse inference endpoint reply
type remoteResponse struct {
	Label       string       `json:"label"`
	Confidence  float64      `json:"confidence"`
	Predictions []Prediction `json:"predictions"`
}

// RemoteClassifier posts raw audio to an HTTP inference endpoint
type RemoteClassifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewRemoteClassifier url is the full endpoint, e.g. http://model:5000/predict
func NewRemoteClassifier(url string, timeout time.Duration, logger *zap.Logger) *RemoteClassifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")

	return &RemoteClassifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

func (c *RemoteClassifier) Classify(ctx context.Context, audio []byte) (*Classification, error) {
	var out remoteResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(audio).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		c.logger.Error("Classifier call failed", zap.String("url", c.url), zap.Error(err))
		return nil, domain.Upstream("failed to call classifier", err)
	}
	if resp.IsError() {
		c.logger.Error("Classifier returned error",
			zap.String("url", c.url),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, domain.Upstream("classifier error", fmt.Errorf("unexpected status %s", resp.Status()))
	}

	result := &Classification{
		Label:      CanonicalLabel(out.Label),
		Confidence: out.Confidence,
	}

	// merge by canonical label, keeping the highest confidence
	best := make(map[string]float64, len(Labels))
	for _, p := range out.Predictions {
		l := CanonicalLabel(p.Label)
		if cur, ok := best[l]; !ok || p.Confidence > cur {
			best[l] = p.Confidence
		}
	}
	if cur, ok := best[result.Label]; !ok || result.Confidence > cur {
		best[result.Label] = result.Confidence
	}
	for _, l := range Labels {
		result.Predictions = append(result.Predictions, Prediction{Label: l, Confidence: best[l]})
	}
	sortPredictions(result.Predictions)

	// label wins ties for the first slot
	for i, p := range result.Predictions {
		if p.Label == result.Label {
			if i > 0 && p.Confidence >= result.Predictions[0].Confidence {
				result.Predictions[0], result.Predictions[i] = result.Predictions[i], result.Predictions[0]
			}
			break
		}
	}

	return result, nil
}
