package query_test

import (
	"context"
	"testing"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/query"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedGraph builds, in org-a:
//
//	X -> A -> B -> D -> F
//	     A -> C -> E
//	     B -> A
//
// and an unrelated A -> Z edge in org-b.
func seedGraph(t *testing.T, s rowstore.Store) {
	t.Helper()
	addEdge(t, s, "org-a", "A", "B", "manages")
	addEdge(t, s, "org-a", "A", "C", "owns")
	addEdge(t, s, "org-a", "B", "D", "manages")
	addEdge(t, s, "org-a", "C", "E", "owns")
	addEdge(t, s, "org-a", "D", "F", "manages")
	addEdge(t, s, "org-a", "X", "A", "refers")
	addEdge(t, s, "org-a", "B", "A", "reports_to")
	addEdge(t, s, "org-b", "A", "Z", "manages")
}

type hop struct {
	from, to string
	level    int
}

func hops(res *query.RelationshipResult) []hop {
	out := make([]hop, 0, len(res.Relationships))
	for _, e := range res.Relationships {
		out = append(out, hop{e.FromEntityID, e.ToEntityID, e.Level})
	}
	return out
}

func TestRelationships_Depth1(t *testing.T) {
	svc, s := newService(t, guardrail.DefaultLimits())
	seedGraph(t, s)

	res, err := svc.Relationships(context.Background(), query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A"})
	require.NoError(t, err)

	assert.Equal(t, "outgoing", res.Direction)
	assert.Equal(t, 1, res.Depth)
	assert.ElementsMatch(t, []hop{{"A", "B", 1}, {"A", "C", 1}}, hops(res))
}

func TestRelationships_Depth2AppendsWithoutDedupe(t *testing.T) {
	svc, s := newService(t, guardrail.DefaultLimits())
	seedGraph(t, s)

	res, err := svc.Relationships(context.Background(), query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Depth: 2})
	require.NoError(t, err)

	assert.ElementsMatch(t, []hop{
		{"A", "B", 1}, {"A", "C", 1},
		{"B", "D", 2}, {"B", "A", 2}, {"C", "E", 2},
	}, hops(res))
	assert.Equal(t, 5, res.Count)
	for i, e := range res.Relationships {
		if i < 2 {
			assert.Equal(t, 1, e.Level, "level-1 edges come first")
		}
	}
}

func TestRelationships_Level2IgnoresTypeFilter(t *testing.T) {
	svc, s := newService(t, guardrail.DefaultLimits())
	seedGraph(t, s)

	res, err := svc.Relationships(context.Background(), query.RelationshipQuery{
		OrgID: "org-a", FromEntityID: "A", RelationshipType: "manages", Depth: 2,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []hop{{"A", "B", 1}, {"B", "D", 2}, {"B", "A", 2}}, hops(res))
}

func TestRelationships_Directions(t *testing.T) {
	svc, s := newService(t, guardrail.DefaultLimits())
	seedGraph(t, s)
	ctx := context.Background()

	res, err := svc.Relationships(ctx, query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Direction: "incoming"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []hop{{"X", "A", 1}, {"B", "A", 1}}, hops(res))

	res, err = svc.Relationships(ctx, query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Direction: "both"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []hop{{"A", "B", 1}, {"A", "C", 1}, {"X", "A", 1}, {"B", "A", 1}}, hops(res))

	res, err = svc.Relationships(ctx, query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Direction: "incoming", Depth: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []hop{
		{"X", "A", 1}, {"B", "A", 1},
		{"X", "A", 2}, {"B", "D", 2}, {"B", "A", 2},
	}, hops(res))
}

func TestRelationships_TenantIsolation(t *testing.T) {
	svc, s := newService(t, guardrail.DefaultLimits())
	seedGraph(t, s)

	res, err := svc.Relationships(context.Background(), query.RelationshipQuery{OrgID: "org-b", FromEntityID: "A", Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, []hop{{"A", "Z", 1}}, hops(res))
}

func TestRelationships_Caps(t *testing.T) {
	limits := guardrail.DefaultLimits()
	limits.RelationshipLevel1 = 1
	limits.RelationshipLevel2 = 1
	svc, s := newService(t, limits)
	seedGraph(t, s)

	res, err := svc.Relationships(context.Background(), query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Depth: 2})
	require.NoError(t, err)
	require.Len(t, res.Relationships, 2)
	assert.Equal(t, 1, res.Relationships[0].Level)
	assert.Equal(t, 2, res.Relationships[1].Level)
}

func TestRelationships_RejectedBeforeStoreAccess(t *testing.T) {
	tests := []struct {
		name string
		q    query.RelationshipQuery
		want guardrail.Code
	}{
		{"depth 3", query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Depth: 3}, guardrail.RelationshipDepthExceeded},
		{"depth 10", query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Depth: 10}, guardrail.RelationshipDepthExceeded},
		{"negative depth", query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Depth: -4}, guardrail.InvalidArgument},
		{"no org", query.RelationshipQuery{FromEntityID: "A"}, guardrail.TenantScopeMissing},
		{"no start", query.RelationshipQuery{OrgID: "org-a"}, guardrail.InvalidArgument},
		{"bad direction", query.RelationshipQuery{OrgID: "org-a", FromEntityID: "A", Direction: "sideways"}, guardrail.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s := newService(t, guardrail.DefaultLimits())
			_, err := svc.Relationships(context.Background(), tt.q)
			requireCode(t, err, tt.want)
			assert.Zero(t, s.selects.Load())
		})
	}
}
