package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	domsvc "FinCast/internal/domain/service"
	xhttp "FinCast/pkg/http"
)

// predictRequest follows the TensorFlow Serving REST row format: one instance
// of shape (window, 1).
type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Remote calls a model served over HTTP, e.g. TensorFlow Serving at
// {base}/v1/models/{name}:predict. Calls are never retried.
type Remote struct {
	name       string
	endpoint   string
	client     *xhttp.Client
	concurrent bool
}

// NewRemote builds a Remote predictor. baseURL must be non-empty.
func NewRemote(name, baseURL string, timeout time.Duration, concurrent bool) (*Remote, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote model %s: base url is empty", name)
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Remote{
		name:       name,
		endpoint:   strings.TrimRight(baseURL, "/") + "/v1/models/" + name + ":predict",
		client:     xhttp.NewClient(timeout),
		concurrent: concurrent,
	}, nil
}

func (r *Remote) Name() string { return r.name }

func (r *Remote) ConcurrentSafe() bool { return r.concurrent }

// PredictOne posts the window and returns the single predicted value.
func (r *Remote) PredictOne(ctx context.Context, window []float64) (float64, error) {
	instance := make([][]float64, len(window))
	for i, v := range window {
		instance[i] = []float64{v}
	}

	var resp predictResponse
	if err := r.client.PostJSON(ctx, r.endpoint, predictRequest{Instances: [][][]float64{instance}}, &resp); err != nil {
		return 0, fmt.Errorf("post %s: %w", r.endpoint, err)
	}
	if len(resp.Predictions) != 1 || len(resp.Predictions[0]) != 1 {
		return 0, fmt.Errorf("post %s: expected a single prediction, got %v", r.endpoint, resp.Predictions)
	}
	return resp.Predictions[0][0], nil
}

var (
	_ domsvc.SequencePredictor = (*Remote)(nil)
	_ domsvc.Named             = (*Remote)(nil)
	_ domsvc.ConcurrencySafe   = (*Remote)(nil)
)
