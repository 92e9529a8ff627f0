package ports

import (
	"context"

	"gopfa/domain/pfa"
)

// ScoringEngine evaluates a compiled document against one input datum.
// Implementations are external: the compiler itself never interprets the
// documents it emits outside of its own test support.
type ScoringEngine interface {
	Evaluate(ctx context.Context, doc *pfa.Document, input any) (any, error)
}
