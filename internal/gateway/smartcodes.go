package gateway

import (
	"context"

	"github.com/heraerp/hera-analytics/internal/smartcode"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchSmartCodesTool handles search_smart_codes.
type SearchSmartCodesTool struct {
	codes *smartcode.Engine
}

// NewSearchSmartCodesTool creates a SearchSmartCodesTool.
func NewSearchSmartCodesTool(codes *smartcode.Engine) *SearchSmartCodesTool {
	return &SearchSmartCodesTool{codes: codes}
}

// Definition returns the MCP tool definition for search_smart_codes.
func (t *SearchSmartCodesTool) Definition() mcp.Tool {
	return mcp.NewTool("search_smart_codes",
		mcp.WithDescription(
			"Find smart codes already used by the organization. Call this before writing so new rows reuse "+
				"an existing code instead of inventing one. Matches the code text and its plain-words meaning.",
		),
		orgParam(),
		mcp.WithString("search_text",
			mcp.Required(),
			mcp.Description("Words to look for, e.g. 'journal' or 'customer'"),
		),
		mcp.WithString("industry",
			mcp.Description("First segment after HERA, e.g. ACCOUNTING or SALON"),
		),
		mcp.WithString("module",
			mcp.Description("Any segment the code must contain, e.g. GL"),
		),
	)
}

// Run searches the organization's codes.
func (t *SearchSmartCodesTool) Run(ctx context.Context, a *Args) (any, error) {
	q := smartcode.SearchQuery{
		OrgID:    a.String(OrgArg),
		Text:     a.RequiredString("search_text"),
		Industry: a.String("industry"),
		Module:   a.String("module"),
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	matches, err := t.codes.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return map[string]any{"smart_codes": matches, "count": len(matches)}, nil
}

// ValidateSmartCodeTool handles validate_smart_code.
type ValidateSmartCodeTool struct {
	codes *smartcode.Engine
}

// NewValidateSmartCodeTool creates a ValidateSmartCodeTool.
func NewValidateSmartCodeTool(codes *smartcode.Engine) *ValidateSmartCodeTool {
	return &ValidateSmartCodeTool{codes: codes}
}

// Definition returns the MCP tool definition for validate_smart_code.
func (t *ValidateSmartCodeTool) Definition() mcp.Tool {
	return mcp.NewTool("validate_smart_code",
		mcp.WithDescription(
			"Check a smart code's format and whether the organization already uses it. "+
				"Reports every version in use and suggests the latest one when a newer version exists.",
		),
		orgParam(),
		mcp.WithString("smart_code",
			mcp.Required(),
			mcp.Description("Code to check, e.g. HERA.ACCOUNTING.GL.JOURNAL.v1"),
		),
	)
}

// Run validates one code. A malformed code is a result, not an error.
func (t *ValidateSmartCodeTool) Run(ctx context.Context, a *Args) (any, error) {
	org := a.String(OrgArg)
	code := a.RequiredString("smart_code")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return t.codes.Validate(ctx, org, code)
}
