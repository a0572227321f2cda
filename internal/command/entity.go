package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
)

// EntityInput is a new entity with optional initial dynamic fields.
type EntityInput struct {
	OrgID         string
	EntityType    string
	EntityName    string
	EntityCode    string
	SmartCode     string
	FirstInstance bool
	Status        string // default active
	Metadata      map[string]any
	Fields        map[string]schema.Value
}

// EntityResult is a created entity and its dynamic fields.
type EntityResult struct {
	Entity schema.Entity         `json:"entity"`
	Fields []schema.DynamicField `json:"fields"`
}

// CreateEntity writes an entity and its initial dynamic fields.
func (s *Service) CreateEntity(ctx context.Context, in EntityInput) (*EntityResult, error) {
	if err := guardrail.RequireOrg(in.OrgID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.EntityType) == "" || strings.TrimSpace(in.EntityName) == "" {
		return nil, guardrail.New(guardrail.InvalidArgument, "entity_type and entity_name are required")
	}
	if in.SmartCode != "" {
		if _, err := s.codes.Check(ctx, in.OrgID, in.SmartCode, s.strict && !in.FirstInstance); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(in.Fields))
	for name, v := range in.Fields {
		if err := checkFieldName(name); err != nil {
			return nil, err
		}
		if v.IsZero() {
			return nil, guardrail.New(guardrail.InvalidArgument, "dynamic field %q has no value", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	status := in.Status
	if status == "" {
		status = "active"
	}
	row := schema.Row{
		"organization_id": in.OrgID,
		"entity_type":     in.EntityType,
		"entity_name":     in.EntityName,
		"status":          status,
		"metadata":        nonNil(in.Metadata),
	}
	if in.EntityCode != "" {
		row["entity_code"] = in.EntityCode
	}
	if in.SmartCode != "" {
		row["smart_code"] = in.SmartCode
	}

	res := &EntityResult{Fields: []schema.DynamicField{}}
	_, err := s.atomically(ctx, func(st rowstore.Store) error {
		e, err := st.Insert(ctx, schema.Entities, row)
		if err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}
		res.Entity = schema.EntityFromRow(e)
		for _, name := range names {
			f, err := upsertField(ctx, st, in.OrgID, res.Entity.ID, name, in.Fields[name], "")
			if err != nil {
				return err
			}
			res.Fields = append(res.Fields, f)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	return res, nil
}

// FieldInput sets one dynamic field.
type FieldInput struct {
	OrgID     string
	EntityID  string
	FieldName string
	Value     schema.Value
	SmartCode string
}

// SetDynamicField writes a typed value for (entity, field_name),
// replacing the active value if there is one.
func (s *Service) SetDynamicField(ctx context.Context, in FieldInput) (*schema.DynamicField, error) {
	if err := guardrail.RequireOrg(in.OrgID); err != nil {
		return nil, err
	}
	if err := checkFieldName(in.FieldName); err != nil {
		return nil, err
	}
	if in.Value.IsZero() {
		return nil, guardrail.New(guardrail.InvalidArgument, "value is required")
	}
	if in.SmartCode != "" {
		if _, err := s.codes.Check(ctx, in.OrgID, in.SmartCode, false); err != nil {
			return nil, err
		}
	}
	if err := s.requireEntities(ctx, in.OrgID, in.EntityID); err != nil {
		return nil, err
	}

	var out schema.DynamicField
	_, err := s.atomically(ctx, func(st rowstore.Store) error {
		f, err := upsertField(ctx, st, in.OrgID, in.EntityID, in.FieldName, in.Value, in.SmartCode)
		out = f
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set dynamic field: %w", err)
	}
	return &out, nil
}

// UpdateEntityStatus changes an entity's status. Entities are never
// physically deleted; retiring one is a status change.
func (s *Service) UpdateEntityStatus(ctx context.Context, orgID, entityID, status string) (*schema.Entity, error) {
	if err := guardrail.RequireOrg(orgID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(entityID) == "" || strings.TrimSpace(status) == "" {
		return nil, guardrail.New(guardrail.InvalidArgument, "entity_id and status are required")
	}
	row, err := s.store.Update(ctx, schema.Entities, orgID, entityID, schema.Row{"status": status})
	if errors.Is(err, rowstore.ErrNotFound) {
		return nil, guardrail.New(guardrail.InvalidArgument,
			"entity %s does not exist in organization %s", entityID, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("update entity status: %w", err)
	}
	e := schema.EntityFromRow(row)
	return &e, nil
}

// RelationshipInput is a new edge.
type RelationshipInput struct {
	OrgID            string
	FromEntityID     string
	ToEntityID       string
	RelationshipType string
	Strength         *float64
	SmartCode        string
	Metadata         map[string]any
}

// CreateRelationship links two entities of the same organization.
func (s *Service) CreateRelationship(ctx context.Context, in RelationshipInput) (*schema.Relationship, error) {
	if err := guardrail.RequireOrg(in.OrgID); err != nil {
		return nil, err
	}
	if in.FromEntityID == "" || in.ToEntityID == "" || strings.TrimSpace(in.RelationshipType) == "" {
		return nil, guardrail.New(guardrail.InvalidArgument,
			"from_entity_id, to_entity_id and relationship_type are required")
	}
	if in.SmartCode != "" {
		if _, err := s.codes.Check(ctx, in.OrgID, in.SmartCode, false); err != nil {
			return nil, err
		}
	}
	if err := s.requireEntities(ctx, in.OrgID, in.FromEntityID, in.ToEntityID); err != nil {
		return nil, err
	}

	strength := 1.0
	if in.Strength != nil {
		strength = *in.Strength
	}
	row := schema.Row{
		"organization_id":       in.OrgID,
		"from_entity_id":        in.FromEntityID,
		"to_entity_id":          in.ToEntityID,
		"relationship_type":     in.RelationshipType,
		"relationship_strength": strength,
		"metadata":              nonNil(in.Metadata),
	}
	if in.SmartCode != "" {
		row["smart_code"] = in.SmartCode
	}
	created, err := s.store.Insert(ctx, schema.Relationships, row)
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}
	r := schema.RelationshipFromRow(created)
	return &r, nil
}

// requireEntities fails unless every id is an entity of orgID.
func (s *Service) requireEntities(ctx context.Context, orgID string, ids ...string) error {
	rows, err := s.store.Select(ctx, schema.Entities, rowstore.Query{
		OrgID:   orgID,
		Columns: []string{"id"},
		Filters: []rowstore.Filter{rowstore.In("id", ids)},
	})
	if err != nil {
		return fmt.Errorf("look up entities: %w", err)
	}
	found := make(map[string]bool, len(rows))
	for _, r := range rows {
		found[r.String("id")] = true
	}
	for _, id := range ids {
		if !found[id] {
			return guardrail.New(guardrail.InvalidArgument,
				"entity %q does not exist in organization %s", id, orgID)
		}
	}
	return nil
}

// checkFieldName rejects names a base entity column would shadow.
func checkFieldName(name string) error {
	if strings.TrimSpace(name) == "" {
		return guardrail.New(guardrail.InvalidArgument, "field_name is required")
	}
	if schema.HasColumn(schema.Entities, name) {
		return guardrail.New(guardrail.InvalidArgument,
			"field_name %q collides with an entity column", name)
	}
	return nil
}

// upsertField keeps at most one active value per (entity, field_name).
func upsertField(ctx context.Context, st rowstore.Store, orgID, entityID, name string, v schema.Value, code string) (schema.DynamicField, error) {
	existing, err := st.Select(ctx, schema.DynamicData, rowstore.Query{
		OrgID: orgID,
		Filters: []rowstore.Filter{
			rowstore.Eq("entity_id", entityID),
			rowstore.Eq("field_name", name),
		},
		Limit: 1,
	})
	if err != nil {
		return schema.DynamicField{}, fmt.Errorf("look up field %s: %w", name, err)
	}

	row := v.Columns()
	if code != "" {
		row["smart_code"] = code
	}
	var saved schema.Row
	if len(existing) > 0 {
		saved, err = st.Update(ctx, schema.DynamicData, orgID, existing[0].String("id"), row)
	} else {
		row["organization_id"] = orgID
		row["entity_id"] = entityID
		row["field_name"] = name
		saved, err = st.Insert(ctx, schema.DynamicData, row)
	}
	if err != nil {
		return schema.DynamicField{}, fmt.Errorf("write field %s: %w", name, err)
	}
	return schema.DynamicFieldFromRow(saved), nil
}
