package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/risk"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("FonRadar MCP Server\nVersion: %s\nBuild: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild())
		return textResult(result), nil
	}
}

// handleAskQuestion implements the ask_question tool
func handleAskQuestion(queryService interfaces.QueryService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		questionText, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(questionText) == "" {
			return errorResult("Error: question parameter is required"), nil
		}

		answer, err := queryService.Ask(ctx, questionText)
		if err != nil {
			logger.Error().Err(err).Str("question", questionText).Msg("Question failed")
			return errorResult(fmt.Sprintf("Query error: %v", err)), nil
		}

		return textResult(answer), nil
	}
}

// handleGetFundRisk implements the get_fund_risk tool
func handleGetFundRisk(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fcode, err := request.RequireString("fcode")
		if err != nil || fcode == "" {
			return errorResult("Error: fcode parameter is required"), nil
		}
		fcode = strings.ToUpper(strings.TrimSpace(fcode))

		rows, err := store.TechnicalIndicatorsFor(ctx, []string{fcode})
		if err != nil {
			logger.Error().Err(err).Str("fcode", fcode).Msg("Risk lookup failed")
			return errorResult(fmt.Sprintf("Risk lookup error: %v", err)), nil
		}

		var assessment *models.RiskAssessment
		if len(rows) == 0 {
			assessment = risk.Unknown(fcode)
		} else {
			assessment = scorer.Score(fcode, models.RiskInputFromIndicators(&rows[0]))
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s %s: %s (puan %d)\n", assessment.Level.Glyph(), fcode, assessment.Level, assessment.Score)
		for _, f := range assessment.Factors {
			fmt.Fprintf(&b, "  [%s] %s\n", f.Severity, f.Description)
		}
		if !assessment.Tradeable {
			b.WriteString("  Bu fon işlem için uygun görünmüyor.\n")
		}
		return textResult(b.String()), nil
	}
}

// handleListFundCodes implements the list_fund_codes tool
func handleListFundCodes(store interfaces.ViewStore, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 100)

		codes, err := store.AllFundCodes(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Fund code listing failed")
			return errorResult(fmt.Sprintf("Listing error: %v", err)), nil
		}
		if limit > 0 && len(codes) > limit {
			codes = codes[:limit]
		}

		return textResult(fmt.Sprintf("%d fon kodu:\n%s", len(codes), strings.Join(codes, ", "))), nil
	}
}

// handleRefreshViews implements the refresh_views tool
func handleRefreshViews(store interfaces.ViewStore, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := store.RefreshViews(ctx); err != nil {
			logger.Error().Err(err).Msg("View refresh failed")
			return errorResult(fmt.Sprintf("Refresh error: %v", err)), nil
		}
		return textResult("Görünümler yenilendi."), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
