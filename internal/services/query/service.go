// Package query implements the request pipeline: analyze the question,
// route it, dispatch the best registered analyzer, and optionally append
// LLM commentary. A request always terminates with a textual report.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
)

// Service wires the question analyzer, orchestrator, and analyzer registry.
type Service struct {
	questions    interfaces.QuestionAnalyzer
	orchestrator interfaces.Orchestrator
	analyzers    map[string]interfaces.Analyzer
	commentary   interfaces.CommentarySink
	logger       *common.Logger
}

// Option configures the service.
type Option func(*Service)

// WithCommentary attaches the optional LLM commentary sink.
func WithCommentary(sink interfaces.CommentarySink) Option {
	return func(s *Service) { s.commentary = sink }
}

// NewService creates the pipeline. The registry maps handler names to
// analyzers; one analyzer may serve several handler names.
func NewService(
	questions interfaces.QuestionAnalyzer,
	orchestrator interfaces.Orchestrator,
	registry map[string]interfaces.Analyzer,
	logger *common.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		questions:    questions,
		orchestrator: orchestrator,
		analyzers:    registry,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask answers one question. Parse failures and analyzer-level errors become
// user-visible report text; only a routing breakdown surfaces as an error.
func (s *Service) Ask(ctx context.Context, text string) (string, error) {
	analysis := s.questions.Analyze(text)

	// Code-shaped tokens that resolved to nothing mean the user asked about
	// a fund we do not know. No view query is worth issuing.
	if len(analysis.FundCodes) == 0 && len(analysis.Candidates) > 0 {
		return s.parseFailureReport(analysis), nil
	}

	routes, err := s.orchestrator.Route(ctx, analysis)
	if err != nil {
		return "", fmt.Errorf("routing failed: %w", err)
	}
	if len(routes) == 0 {
		return "", errors.New("no routes produced for question")
	}

	for _, route := range routes {
		analyzer, ok := s.analyzers[route.Handler]
		if !ok {
			s.logger.Warn().Str("handler", route.Handler).Msg("No analyzer registered for handler, skipping route")
			continue
		}

		out, execErr := analyzer.Execute(ctx, route.Method, analysis, route.Context)
		if execErr != nil {
			var parseErr *models.ParseFailureError
			if errors.As(execErr, &parseErr) {
				return formatParseFailure(parseErr), nil
			}
			s.logger.Warn().Err(execErr).
				Str("handler", route.Handler).
				Str("method", route.Method).
				Msg("Analyzer failed, trying next route")
			continue
		}

		return s.withCommentary(ctx, analysis, route, out), nil
	}

	return "Sorunuz şu anda yanıtlanamadı: tüm analiz yolları başarısız oldu.", nil
}

// withCommentary appends the optional LLM comment. Extreme-risk requests
// suppress commentary; sink failures are silent.
func (s *Service) withCommentary(ctx context.Context, analysis *models.QuestionAnalysis, route models.Route, out string) string {
	if s.commentary == nil || !s.commentary.Available() {
		return out
	}
	if route.Context != nil && route.Context.HasExtremeRisk {
		return out
	}

	prompt := fmt.Sprintf("Soru: %s\n\nRapor:\n%s\n\nBu raporu iki cümleyle yorumla.", analysis.Original, out)
	comment, err := s.commentary.Query(ctx, prompt, "Türkiye fon piyasası analisti")
	if err != nil || strings.TrimSpace(comment) == "" {
		if err != nil {
			s.logger.Debug().Err(err).Msg("Commentary sink failed, emitting report without comment")
		}
		return out
	}
	return out + "\n💬 Yorum: " + strings.TrimSpace(comment) + "\n"
}

func (s *Service) parseFailureReport(analysis *models.QuestionAnalysis) string {
	sample := s.sampleCodes()
	return formatParseFailure(&models.ParseFailureError{
		Token:     analysis.Candidates[0],
		Available: sample,
	})
}

// sampleCodes returns up to 20 canonical codes for the parse-failure hint.
func (s *Service) sampleCodes() []string {
	type lister interface{ CanonicalCodes() []string }
	if l, ok := s.questions.(lister); ok {
		codes := l.CanonicalCodes()
		if len(codes) > 20 {
			codes = codes[:20]
		}
		return codes
	}
	return nil
}

func formatParseFailure(err *models.ParseFailureError) string {
	var b strings.Builder
	if err.Token != "" {
		fmt.Fprintf(&b, "❓ %q bir fon kodu olarak tanınmadı.\n\n", err.Token)
	} else {
		b.WriteString("❓ Soruda tanınan bir fon kodu yok.\n\n")
	}
	if len(err.Available) > 0 {
		fmt.Fprintf(&b, "Kayıtlı fon kodlarından örnekler: %s\n", strings.Join(err.Available, ", "))
	}
	b.WriteString("Üç harfli fon kodunu kontrol edip tekrar deneyin.\n")
	return b.String()
}

var _ interfaces.QueryService = (*Service)(nil)
