package gateway

import (
	"context"

	"github.com/heraerp/hera-analytics/internal/command"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/query"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchRelationshipsTool handles search_relationships.
type SearchRelationshipsTool struct {
	reads *query.Service
}

// NewSearchRelationshipsTool creates a SearchRelationshipsTool.
func NewSearchRelationshipsTool(reads *query.Service) *SearchRelationshipsTool {
	return &SearchRelationshipsTool{reads: reads}
}

// Definition returns the MCP tool definition for search_relationships.
func (t *SearchRelationshipsTool) Definition() mcp.Tool {
	return mcp.NewTool("search_relationships",
		mcp.WithDescription(
			"Walk relationships from one entity. Depth 2 adds the outgoing edges of every entity reached at depth 1.",
		),
		orgParam(),
		mcp.WithString("from_entity_id", mcp.Required(), mcp.Description("Start entity")),
		mcp.WithString("relationship_type", mcp.Description("Only edges of this type at depth 1")),
		mcp.WithString("direction",
			mcp.Description("Which edges to follow at depth 1"),
			mcp.Enum(query.Outgoing, query.Incoming, query.Both),
			mcp.DefaultString(query.Outgoing),
		),
		mcp.WithNumber("depth", mcp.Description("1 (default) or 2")),
	)
}

// Run walks the graph.
func (t *SearchRelationshipsTool) Run(ctx context.Context, a *Args) (any, error) {
	q := query.RelationshipQuery{
		OrgID:            a.String(OrgArg),
		FromEntityID:     a.String("from_entity_id"),
		RelationshipType: a.String("relationship_type"),
		Direction:        a.String("direction"),
		Depth:            a.Int("depth", 1),
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	if q.Depth < 1 {
		return nil, guardrail.New(guardrail.InvalidArgument, "depth must be 1 or 2, got %d", q.Depth)
	}
	return t.reads.Relationships(ctx, q)
}

// CreateRelationshipTool handles create_relationship.
type CreateRelationshipTool struct {
	writes *command.Service
}

// NewCreateRelationshipTool creates a CreateRelationshipTool.
func NewCreateRelationshipTool(writes *command.Service) *CreateRelationshipTool {
	return &CreateRelationshipTool{writes: writes}
}

// Definition returns the MCP tool definition for create_relationship.
func (t *CreateRelationshipTool) Definition() mcp.Tool {
	return mcp.NewTool("create_relationship",
		mcp.WithDescription("Link two entities of the organization."),
		orgParam(),
		mcp.WithString("from_entity_id", mcp.Required(), mcp.Description("Source entity")),
		mcp.WithString("to_entity_id", mcp.Required(), mcp.Description("Target entity")),
		mcp.WithString("relationship_type", mcp.Required(), mcp.Description("Edge type, e.g. parent_of")),
		mcp.WithNumber("relationship_strength", mcp.Description("Weight (default 1)")),
		mcp.WithString("smart_code", mcp.Description("Smart code for the edge")),
		mcp.WithObject("metadata", mcp.Description("Free-form metadata")),
	)
}

// Run creates the edge.
func (t *CreateRelationshipTool) Run(ctx context.Context, a *Args) (any, error) {
	in := command.RelationshipInput{
		OrgID:            a.String(OrgArg),
		FromEntityID:     a.RequiredString("from_entity_id"),
		ToEntityID:       a.RequiredString("to_entity_id"),
		RelationshipType: a.RequiredString("relationship_type"),
		Strength:         a.Float("relationship_strength"),
		SmartCode:        a.String("smart_code"),
		Metadata:         a.Map("metadata"),
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	return t.writes.CreateRelationship(ctx, in)
}

