package interfaces

import (
	"context"

	"github.com/fonradar/fonradar/internal/models"
)

// Analyzer is the shared contract every analyzer implements. Execute runs
// the named method for the question and returns finished report text.
// Analyzers are stateless per request: they read views, score candidates
// through the risk scorer, partition them, and hand the partition to the
// report assembler.
type Analyzer interface {
	// Name returns the handler name used by routing tables.
	Name() string

	// Methods returns the method names this analyzer accepts.
	Methods() []string

	// Execute runs one method. A ViewEmpty or view error triggers exactly
	// one fallback attempt internally; a second failure is returned.
	Execute(ctx context.Context, method string, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error)
}

// Orchestrator turns a question analysis into a ranked list of routes.
type Orchestrator interface {
	Route(ctx context.Context, analysis *models.QuestionAnalysis) ([]models.Route, error)
}

// QuestionAnalyzer parses a free-form question into a structured analysis.
// Implementations are pure and idempotent.
type QuestionAnalyzer interface {
	Analyze(question string) *models.QuestionAnalysis
}

// RiskScorer maps indicator fields to a risk assessment. Pure: no I/O.
type RiskScorer interface {
	Score(fcode string, input models.RiskInput) *models.RiskAssessment
}

// QueryService is the full request pipeline: analyze, route, dispatch,
// assemble. A request always terminates with a textual report; only
// catastrophic failures (no routes at all) surface as errors.
type QueryService interface {
	Ask(ctx context.Context, question string) (string, error)
}
