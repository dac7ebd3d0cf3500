package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the FonRadar MCP server version and status. Use this to verify connectivity."),
	)
}

// createAskQuestionTool returns the ask_question tool definition
func createAskQuestionTool() mcp.Tool {
	return mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a natural-language question about Turkish investment funds (TEFAS). Supports performance screens, comparisons, risk reports, advanced metrics (beta, alpha, Sharpe), currency and inflation analysis, technical signals, and life-goal planning. Questions are expected in Turkish."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question text, e.g. 'en güvenli 10 fon' or 'AKB ve YAS karşılaştır'"),
		),
	)
}

// createGetFundRiskTool returns the get_fund_risk tool definition
func createGetFundRiskTool() mcp.Tool {
	return mcp.NewTool("get_fund_risk",
		mcp.WithDescription("Get the rule-based risk assessment for a single fund: score, level, and contributing factors."),
		mcp.WithString("fcode",
			mcp.Required(),
			mcp.Description("Three-letter TEFAS fund code (e.g. 'AKB')"),
		),
	)
}

// createListFundCodesTool returns the list_fund_codes tool definition
func createListFundCodesTool() mcp.Tool {
	return mcp.NewTool("list_fund_codes",
		mcp.WithDescription("List the canonical fund codes known to the view store."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum codes to return (default: 100)"),
		),
	)
}

// createRefreshViewsTool returns the refresh_views tool definition
func createRefreshViewsTool() mcp.Tool {
	return mcp.NewTool("refresh_views",
		mcp.WithDescription("Re-materialize the analytical views from base fund data. Use after loading new price data."),
	)
}
