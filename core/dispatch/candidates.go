package dispatch

import (
	"context"

	"github.com/jbleroy/fieldops/core/model"
)

// CandidateSource lists the dispatch pool. The profile directory is an
// external collaborator; the engine only consumes snapshots.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]model.Candidate, error)
}

// StaticCandidateSource serves a fixed pool. Used in tests and by setups
// where the pool is injected at wiring time.
type StaticCandidateSource struct {
	Pool []model.Candidate
}

func (s StaticCandidateSource) Candidates(context.Context) ([]model.Candidate, error) {
	return s.Pool, nil
}
