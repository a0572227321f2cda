package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
)

// Traversal directions.
const (
	Outgoing = "outgoing"
	Incoming = "incoming"
	Both     = "both"
)

// RelationshipQuery walks edges from one entity.
type RelationshipQuery struct {
	OrgID            string
	FromEntityID     string
	RelationshipType string
	Direction        string // default outgoing
	Depth            int    // 1 or 2; zero means 1
}

// Edge is a relationship tagged with the hop it was found at.
type Edge struct {
	schema.Relationship
	Level int `json:"level"`
}

// RelationshipResult is the answer to a RelationshipQuery.
type RelationshipResult struct {
	Relationships []Edge `json:"relationships"`
	Count         int    `json:"count"`
	Depth         int    `json:"depth"`
	Direction     string `json:"direction"`
}

// Relationships returns the level-1 edges touching the start entity and,
// at depth 2, the outgoing edges of every entity on their far side.
//
// Level 2 is one breadth-first step, not a closure: it ignores the type
// and direction filters and is appended to level 1 without removing
// duplicates, so a cycle back to the start shows up again.
func (s *Service) Relationships(ctx context.Context, q RelationshipQuery) (*RelationshipResult, error) {
	if err := guardrail.RequireOrg(q.OrgID); err != nil {
		return nil, err
	}
	depth := q.Depth
	if depth < 0 {
		return nil, guardrail.New(guardrail.InvalidArgument, "depth must be 1 or 2, got %d", depth)
	}
	if depth == 0 {
		depth = 1
	}
	if err := guardrail.CheckDepth(depth); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.FromEntityID) == "" {
		return nil, guardrail.New(guardrail.InvalidArgument, "from_entity_id is required")
	}
	dir := strings.ToLower(q.Direction)
	if dir == "" {
		dir = Outgoing
	}

	lq := rowstore.Query{
		OrgID:   q.OrgID,
		OrderBy: []rowstore.Order{{Column: "created_at"}, {Column: "id"}},
		Limit:   s.limits.RelationshipLevel1,
	}
	switch dir {
	case Outgoing:
		lq.Filters = append(lq.Filters, rowstore.Eq("from_entity_id", q.FromEntityID))
	case Incoming:
		lq.Filters = append(lq.Filters, rowstore.Eq("to_entity_id", q.FromEntityID))
	case Both:
		lq.AnyOf = []rowstore.Filter{
			rowstore.Eq("from_entity_id", q.FromEntityID),
			rowstore.Eq("to_entity_id", q.FromEntityID),
		}
	default:
		return nil, guardrail.New(guardrail.InvalidArgument,
			"unknown direction %q (want outgoing, incoming or both)", q.Direction)
	}
	if q.RelationshipType != "" {
		lq.Filters = append(lq.Filters, rowstore.Eq("relationship_type", q.RelationshipType))
	}

	level1, err := s.store.Select(ctx, schema.Relationships, lq)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	res := &RelationshipResult{Depth: depth, Direction: dir, Relationships: make([]Edge, 0, len(level1))}
	for _, r := range level1 {
		res.Relationships = append(res.Relationships, Edge{Relationship: schema.RelationshipFromRow(r), Level: 1})
	}

	if depth == 2 && len(level1) > 0 {
		var others []string
		for _, e := range res.Relationships {
			if e.FromEntityID == q.FromEntityID {
				others = append(others, e.ToEntityID)
			} else {
				others = append(others, e.FromEntityID)
			}
		}
		level2, err := s.store.Select(ctx, schema.Relationships, rowstore.Query{
			OrgID:   q.OrgID,
			Filters: []rowstore.Filter{rowstore.In("from_entity_id", others)},
			OrderBy: []rowstore.Order{{Column: "created_at"}, {Column: "id"}},
			Limit:   s.limits.RelationshipLevel2,
		})
		if err != nil {
			return nil, fmt.Errorf("query level-2 relationships: %w", err)
		}
		for _, r := range level2 {
			res.Relationships = append(res.Relationships, Edge{Relationship: schema.RelationshipFromRow(r), Level: 2})
		}
	}
	res.Count = len(res.Relationships)
	return res, nil
}
