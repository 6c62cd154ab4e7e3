package ports

import "github.com/bnema/datagen/internal/domain"

// Generator produces one independently sampled record per call.
// Generate is expected to return a *domain.Record.
type Generator interface {
	Schema() *domain.Schema
	Generate() (any, error)
}
