package query

import (
	"context"
	"fmt"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
)

// EntityQuery selects entities of one organization.
type EntityQuery struct {
	OrgID      string
	EntityType string
	SmartCode  string
	// Filters are equality predicates on the merged record, dynamic
	// fields included. They are applied after the page is fetched.
	Filters map[string]any
	// Select limits the keys of each record. id is always present.
	Select []string
	Limit  int
}

// EntityResult is the answer to an EntityQuery.
type EntityResult struct {
	Entities []map[string]any `json:"entities"`
	Count    int              `json:"count"`
	Limit    int              `json:"limit"`
	// Scanned is how many entities were fetched before dynamic filters ran.
	Scanned int `json:"scanned"`
}

// Entities fetches a page of entities with their dynamic fields merged in.
//
// Only entity_type and smart_code filter in the store. Dynamic fields are
// not indexed, so Filters run in memory over the fetched page and a page
// can come back shorter than Limit even when more matches exist. The cost
// is O(entities x dynamic fields) per page; large tenants would need a
// side index keyed by (field_name, value).
func (s *Service) Entities(ctx context.Context, q EntityQuery) (*EntityResult, error) {
	if err := guardrail.RequireOrg(q.OrgID); err != nil {
		return nil, err
	}
	limit := guardrail.ClampLimit(q.Limit, s.limits.EntityDefault, s.limits.EntityMax)

	var filters []rowstore.Filter
	if q.EntityType != "" {
		filters = append(filters, rowstore.Eq("entity_type", q.EntityType))
	}
	if q.SmartCode != "" {
		filters = append(filters, rowstore.Eq("smart_code", q.SmartCode))
	}
	rows, err := s.store.Select(ctx, schema.Entities, rowstore.Query{
		OrgID:   q.OrgID,
		Filters: filters,
		OrderBy: []rowstore.Order{{Column: "created_at", Desc: true}, {Column: "id"}},
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}

	records, err := s.mergeDynamic(ctx, q.OrgID, rows)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if !matchAll(rec, q.Filters) {
			continue
		}
		out = append(out, project(rec, q.Select))
	}
	return &EntityResult{Entities: out, Count: len(out), Limit: limit, Scanned: len(rows)}, nil
}

// mergeDynamic flattens each entity row and its dynamic fields into one
// record. Base columns win over dynamic fields of the same name.
func (s *Service) mergeDynamic(ctx context.Context, orgID string, rows []schema.Row) ([]map[string]any, error) {
	records := make([]map[string]any, len(rows))
	index := make(map[string]map[string]any, len(rows))
	ids := make([]string, 0, len(rows))
	for i, r := range rows {
		rec := make(map[string]any, len(r))
		for k, v := range r {
			rec[k] = v
		}
		records[i] = rec
		id := r.String("id")
		index[id] = rec
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return records, nil
	}

	dyn, err := s.store.Select(ctx, schema.DynamicData, rowstore.Query{
		OrgID:   orgID,
		Filters: []rowstore.Filter{rowstore.In("entity_id", ids)},
	})
	if err != nil {
		return nil, fmt.Errorf("query dynamic fields: %w", err)
	}
	for _, r := range dyn {
		f := schema.DynamicFieldFromRow(r)
		rec := index[f.EntityID]
		if rec == nil || schema.HasColumn(schema.Entities, f.FieldName) {
			continue
		}
		rec[f.FieldName] = f.Value.Any()
	}
	return records, nil
}

func matchAll(rec map[string]any, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := rec[k]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

// project keeps id plus the selected keys. Selected keys the record lacks
// come back as null so every record has the same shape.
func project(rec map[string]any, keys []string) map[string]any {
	if len(keys) == 0 {
		return rec
	}
	out := map[string]any{"id": rec["id"]}
	for _, k := range keys {
		out[k] = rec[k]
	}
	return out
}
