package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/heraerp/hera-analytics/internal/command"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCustomer(t *testing.T, svc *command.Service, org, name string) *command.EntityResult {
	t.Helper()
	res, err := svc.CreateEntity(context.Background(), command.EntityInput{
		OrgID:      org,
		EntityType: "customer",
		EntityName: name,
		SmartCode:  "HERA.CRM.CUSTOMER.v1",
		Fields: map[string]schema.Value{
			"vip_status":   schema.Bool(true),
			"loyalty_tier": schema.Text("gold"),
		},
	})
	require.NoError(t, err)
	return res
}

func TestCreateEntity(t *testing.T) {
	store := openStore(t)
	svc := newService(t, store, false)

	res := createCustomer(t, svc, "org-x", "Acme")

	assert.NotEmpty(t, res.Entity.ID)
	assert.Equal(t, "active", res.Entity.Status)
	assert.Equal(t, "HERA.CRM.CUSTOMER.v1", res.Entity.SmartCode)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "loyalty_tier", res.Fields[0].FieldName)
	assert.Equal(t, schema.ValueText, res.Fields[0].Value.Kind())
	assert.Equal(t, "vip_status", res.Fields[1].FieldName)
	assert.Equal(t, true, res.Fields[1].Value.Any())
}

func TestCreateEntity_Rejects(t *testing.T) {
	svc := newService(t, openStore(t), false)
	ctx := context.Background()

	tests := []struct {
		name string
		in   command.EntityInput
		want guardrail.Code
	}{
		{"no org", command.EntityInput{EntityType: "customer", EntityName: "A"}, guardrail.TenantScopeMissing},
		{"no name", command.EntityInput{OrgID: "o", EntityType: "customer"}, guardrail.InvalidArgument},
		{"bad code", command.EntityInput{OrgID: "o", EntityType: "customer", EntityName: "A", SmartCode: "CUSTOMER"}, guardrail.SmartCodeMalformed},
		{"shadowing field", command.EntityInput{OrgID: "o", EntityType: "customer", EntityName: "A",
			Fields: map[string]schema.Value{"status": schema.Text("x")}}, guardrail.InvalidArgument},
		{"empty value", command.EntityInput{OrgID: "o", EntityType: "customer", EntityName: "A",
			Fields: map[string]schema.Value{"tier": {}}}, guardrail.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEntity(ctx, tt.in)
			requireCode(t, err, tt.want)
		})
	}
}

func TestSetDynamicField_UpsertKeepsOneActiveValue(t *testing.T) {
	store := openStore(t)
	svc := newService(t, store, false)
	ctx := context.Background()
	id := createCustomer(t, svc, "org-x", "Acme").Entity.ID

	f, err := svc.SetDynamicField(ctx, command.FieldInput{
		OrgID: "org-x", EntityID: id, FieldName: "loyalty_tier", Value: schema.Text("platinum"),
	})
	require.NoError(t, err)
	assert.Equal(t, "platinum", f.Value.Any())

	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f, err = svc.SetDynamicField(ctx, command.FieldInput{
		OrgID: "org-x", EntityID: id, FieldName: "loyalty_tier", Value: schema.Date(since),
	})
	require.NoError(t, err)
	assert.Equal(t, schema.ValueDate, f.Value.Kind())

	rows, err := store.Select(ctx, schema.DynamicData, rowstore.Query{
		OrgID:   "org-x",
		Filters: []rowstore.Filter{rowstore.Eq("field_name", "loyalty_tier")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	field := schema.DynamicFieldFromRow(rows[0])
	assert.Equal(t, schema.ValueDate, field.Value.Kind())
	assert.Nil(t, rows[0]["field_value_text"], "previous variant cleared")
}

func TestSetDynamicField_EntityMustBelongToOrg(t *testing.T) {
	svc := newService(t, openStore(t), false)
	id := createCustomer(t, svc, "org-x", "Acme").Entity.ID

	_, err := svc.SetDynamicField(context.Background(), command.FieldInput{
		OrgID: "org-y", EntityID: id, FieldName: "loyalty_tier", Value: schema.Text("gold"),
	})
	requireCode(t, err, guardrail.InvalidArgument)
}

func TestUpdateEntityStatus(t *testing.T) {
	store := openStore(t)
	svc := newService(t, store, false)
	ctx := context.Background()
	id := createCustomer(t, svc, "org-x", "Acme").Entity.ID

	e, err := svc.UpdateEntityStatus(ctx, "org-x", id, "archived")
	require.NoError(t, err)
	assert.Equal(t, "archived", e.Status)
	assert.Equal(t, 1, countRows(t, store, "org-x", schema.Entities), "soft change, row kept")

	_, err = svc.UpdateEntityStatus(ctx, "org-y", id, "deleted")
	requireCode(t, err, guardrail.InvalidArgument)

	_, err = svc.UpdateEntityStatus(ctx, "", id, "deleted")
	requireCode(t, err, guardrail.TenantScopeMissing)
}

func TestCreateRelationship(t *testing.T) {
	svc := newService(t, openStore(t), false)
	ctx := context.Background()
	a := createCustomer(t, svc, "org-x", "A").Entity.ID
	b := createCustomer(t, svc, "org-x", "B").Entity.ID
	other := createCustomer(t, svc, "org-y", "Other").Entity.ID

	r, err := svc.CreateRelationship(ctx, command.RelationshipInput{
		OrgID: "org-x", FromEntityID: a, ToEntityID: b, RelationshipType: "refers",
	})
	require.NoError(t, err)
	assert.Equal(t, a, r.FromEntityID)
	assert.Equal(t, 1.0, r.Strength)

	_, err = svc.CreateRelationship(ctx, command.RelationshipInput{
		OrgID: "org-x", FromEntityID: a, ToEntityID: other, RelationshipType: "refers",
	})
	requireCode(t, err, guardrail.InvalidArgument)

	_, err = svc.CreateRelationship(ctx, command.RelationshipInput{
		OrgID: "org-x", FromEntityID: a, ToEntityID: b,
	})
	requireCode(t, err, guardrail.InvalidArgument)
}
