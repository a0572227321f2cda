// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to follow a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GuidePrompt handles the hera-analytics-guide MCP prompt.
// It primes the AI with the calling rules before an analysis session.
type GuidePrompt struct{}

// NewGuidePrompt creates a GuidePrompt.
func NewGuidePrompt() *GuidePrompt {
	return &GuidePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *GuidePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("hera-analytics-guide",
		mcp.WithPromptDescription(
			"Start an analytics session against one organization's HERA data. "+
				"Explains how to scope calls, stay inside the limits and recover from guardrail errors.",
		),
		mcp.WithArgument("organization_id",
			mcp.ArgumentDescription("Organization to analyze"),
		),
		mcp.WithArgument("question",
			mcp.ArgumentDescription("What you want to find out"),
		),
	)
}

// Handle processes the hera-analytics-guide prompt request.
func (p *GuidePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	org := "<ask me for the organization id>"
	question := ""
	if args := req.Params.Arguments; args != nil {
		if v := args["organization_id"]; v != "" {
			org = v
		}
		question = args["question"]
	}

	ask := "Ask me what I want to find out."
	if question != "" {
		ask = fmt.Sprintf("My question: %s", question)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("HERA analytics for organization %s", org),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to analyze HERA data for organization_id=%s.\n\n"+
						"Rules for every tool call:\n"+
						"1. Always pass organization_id=%s. Never mix organizations.\n"+
						"2. Before writing, call `search_smart_codes` and reuse an existing code.\n"+
						"3. Entity attributes live in dynamic fields; filter on them with `query_entities`.\n"+
						"4. For trends, call `query_transactions` with group_by and time.grain. "+
						"Raw listings stop at 50 rows; aggregate instead of paging.\n"+
						"5. `search_relationships` goes at most 2 levels deep.\n"+
						"6. If a call fails, read `guardrail` and `correction` in the error, "+
						"adjust the arguments and retry. Do not retry unchanged.\n\n"+
						"%s",
					org, org, ask,
				)),
			},
		},
	}, nil
}
