package gateway

import (
	"context"
	"sort"

	"github.com/heraerp/hera-analytics/internal/command"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/query"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── query_entities ─────────────────────────────────────────────────────

// QueryEntitiesTool handles query_entities.
type QueryEntitiesTool struct {
	reads *query.Service
}

// NewQueryEntitiesTool creates a QueryEntitiesTool.
func NewQueryEntitiesTool(reads *query.Service) *QueryEntitiesTool {
	return &QueryEntitiesTool{reads: reads}
}

// Definition returns the MCP tool definition for query_entities.
func (t *QueryEntitiesTool) Definition() mcp.Tool {
	return mcp.NewTool("query_entities",
		mcp.WithDescription(
			"List entities (customers, products, accounts...) with their dynamic fields merged into each record. "+
				"Filters match base columns and dynamic fields alike.",
		),
		orgParam(),
		mcp.WithString("entity_type", mcp.Description("Entity type, e.g. customer")),
		mcp.WithString("smart_code", mcp.Description("Exact smart code to match")),
		mcp.WithObject("filters",
			mcp.Description("Equality filters on merged fields, e.g. {\"vip_status\": true}"),
		),
		mcp.WithArray("select",
			mcp.Description("Fields to return; id is always included"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum entities (default 50, max 1000)")),
	)
}

// Run queries entities.
func (t *QueryEntitiesTool) Run(ctx context.Context, a *Args) (any, error) {
	q := query.EntityQuery{
		OrgID:      a.String(OrgArg),
		EntityType: a.String("entity_type"),
		SmartCode:  a.String("smart_code"),
		Filters:    a.Map("filters"),
		Select:     a.Strings("select"),
		Limit:      a.Int("limit", 0),
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	return t.reads.Entities(ctx, q)
}

// ─── create_entity ──────────────────────────────────────────────────────

// CreateEntityTool handles create_entity.
type CreateEntityTool struct {
	writes *command.Service
}

// NewCreateEntityTool creates a CreateEntityTool.
func NewCreateEntityTool(writes *command.Service) *CreateEntityTool {
	return &CreateEntityTool{writes: writes}
}

// Definition returns the MCP tool definition for create_entity.
func (t *CreateEntityTool) Definition() mcp.Tool {
	return mcp.NewTool("create_entity",
		mcp.WithDescription(
			"Create an entity. Custom attributes go in dynamic_fields, never in new columns.",
		),
		orgParam(),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Entity type, e.g. customer")),
		mcp.WithString("entity_name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("entity_code", mcp.Description("Business code, e.g. CUST-001")),
		mcp.WithString("smart_code", mcp.Description("Smart code, e.g. HERA.CRM.CUSTOMER.v1")),
		mcp.WithString("status", mcp.Description("Initial status (default active)")),
		mcp.WithObject("metadata", mcp.Description("Free-form metadata")),
		mcp.WithObject("dynamic_fields",
			mcp.Description("Field name to value. A value may be {\"value\": ..., \"type\": \"text|number|boolean|date\"} to force its type."),
		),
		mcp.WithBoolean("first_instance",
			mcp.Description("Set when introducing a smart code the organization has never used"),
		),
	)
}

// Run creates the entity and its fields.
func (t *CreateEntityTool) Run(ctx context.Context, a *Args) (any, error) {
	in := command.EntityInput{
		OrgID:         a.String(OrgArg),
		EntityType:    a.RequiredString("entity_type"),
		EntityName:    a.RequiredString("entity_name"),
		EntityCode:    a.String("entity_code"),
		SmartCode:     a.String("smart_code"),
		Status:        a.String("status"),
		FirstInstance: a.Bool("first_instance", false),
		Metadata:      a.Map("metadata"),
	}
	fields := a.Map("dynamic_fields")
	if err := a.Err(); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		in.Fields = make(map[string]schema.Value, len(fields))
		for _, name := range names {
			v, err := fieldValue(name, fields[name], "")
			if err != nil {
				return nil, err
			}
			in.Fields[name] = v
		}
	}
	return t.writes.CreateEntity(ctx, in)
}

// fieldValue decodes a dynamic field value, either bare or wrapped as
// {value, type}.
func fieldValue(name string, raw any, kind string) (schema.Value, error) {
	if m, ok := raw.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			raw = inner
			if k, ok := m["type"].(string); ok && kind == "" {
				kind = k
			}
		}
	}
	v, err := schema.InferValue(raw, schema.ValueKind(kind))
	if err != nil {
		return schema.Value{}, guardrail.Wrap(guardrail.InvalidArgument, err, "dynamic field %q", name)
	}
	return v, nil
}

// ─── set_dynamic_field ──────────────────────────────────────────────────

// SetDynamicFieldTool handles set_dynamic_field.
type SetDynamicFieldTool struct {
	writes *command.Service
}

// NewSetDynamicFieldTool creates a SetDynamicFieldTool.
func NewSetDynamicFieldTool(writes *command.Service) *SetDynamicFieldTool {
	return &SetDynamicFieldTool{writes: writes}
}

// Definition returns the MCP tool definition for set_dynamic_field.
func (t *SetDynamicFieldTool) Definition() mcp.Tool {
	return mcp.NewTool("set_dynamic_field",
		mcp.WithDescription("Set one typed attribute on an entity, replacing its current value."),
		orgParam(),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity to update")),
		mcp.WithString("field_name", mcp.Required(), mcp.Description("Attribute name, e.g. loyalty_tier")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value; JSON strings, numbers and booleans keep their type")),
		mcp.WithString("field_type",
			mcp.Description("Force the stored type"),
			mcp.Enum("text", "number", "boolean", "date"),
		),
		mcp.WithString("smart_code", mcp.Description("Smart code for the field")),
	)
}

// Run writes the field.
func (t *SetDynamicFieldTool) Run(ctx context.Context, a *Args) (any, error) {
	in := command.FieldInput{
		OrgID:     a.String(OrgArg),
		EntityID:  a.RequiredString("entity_id"),
		FieldName: a.RequiredString("field_name"),
		SmartCode: a.String("smart_code"),
	}
	kind := a.String("field_type")
	if !a.Has("value") {
		return nil, guardrail.New(guardrail.InvalidArgument, "value is required")
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	v, err := fieldValue(in.FieldName, a.Raw("value"), kind)
	if err != nil {
		return nil, err
	}
	in.Value = v
	return t.writes.SetDynamicField(ctx, in)
}

// ─── update_entity_status ───────────────────────────────────────────────

// UpdateEntityStatusTool handles update_entity_status.
type UpdateEntityStatusTool struct {
	writes *command.Service
}

// NewUpdateEntityStatusTool creates an UpdateEntityStatusTool.
func NewUpdateEntityStatusTool(writes *command.Service) *UpdateEntityStatusTool {
	return &UpdateEntityStatusTool{writes: writes}
}

// Definition returns the MCP tool definition for update_entity_status.
func (t *UpdateEntityStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("update_entity_status",
		mcp.WithDescription("Change an entity's status. Entities are never deleted; archive them instead."),
		orgParam(),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity to update")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status, e.g. archived")),
	)
}

// Run changes the status.
func (t *UpdateEntityStatusTool) Run(ctx context.Context, a *Args) (any, error) {
	org := a.String(OrgArg)
	id := a.RequiredString("entity_id")
	status := a.RequiredString("status")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return t.writes.UpdateEntityStatus(ctx, org, id, status)
}
