package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/gitfolio/internal/models"
)

// BatchResult is the outcome of one run in a batch
type BatchResult struct {
	Request models.AnalysisRequest
	Report  *models.Report
	Err     error
}

// RunBatch runs independent analyses with at most concurrency in flight.
// One failing run does not cancel the others. Results keep input order.
func (o *Orchestrator) RunBatch(ctx context.Context, reqs []models.AnalysisRequest, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			report, err := o.RunAnalysis(ctx, req)
			results[i] = BatchResult{Request: req, Report: report, Err: err}
			return nil
		})
	}

	// every goroutine returns nil
	_ = g.Wait()
	return results
}
