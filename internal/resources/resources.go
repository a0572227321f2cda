// Package resources implements the read-only MCP resources.
//
// Resources describe the fixed data model and the guardrails so a host can
// load them as context before calling tools. They use hera:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"
)

// Resource URIs.
const (
	SchemaURI     = "hera://schema/sacred-six"
	GuardrailsURI = "hera://guardrails"
)

// Handler serves the resources.
type Handler struct {
	limits    guardrail.Limits
	tolerance decimal.Decimal
}

// NewHandler creates a resource Handler reporting limits and the ledger
// tolerance in force.
func NewHandler(limits guardrail.Limits, tolerance decimal.Decimal) *Handler {
	return &Handler{limits: limits, tolerance: tolerance}
}

// SchemaResource returns the MCP resource definition for the data model.
func (h *Handler) SchemaResource() mcp.Resource {
	return mcp.NewResource(
		SchemaURI,
		"HERA Sacred Six Schema",
		mcp.WithResourceDescription("The six tables every organization shares, with their columns and kinds"),
		mcp.WithMIMEType("application/json"),
	)
}

// TableDoc is one table in the schema resource.
type TableDoc struct {
	Name    schema.Table    `json:"name"`
	Columns []schema.Column `json:"columns"`
}

// HandleSchema returns the tables and columns as JSON.
func (h *Handler) HandleSchema(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	docs := make([]TableDoc, 0, 6)
	for _, t := range schema.Tables() {
		docs = append(docs, TableDoc{Name: t, Columns: schema.Columns(t)})
	}
	return jsonResource(req.Params.URI, map[string]any{
		"tables": docs,
		"notes": []string{
			"Every row carries organization_id; every call must pass it.",
			"Custom attributes are rows in core_dynamic_data, never new columns.",
			"Tables and columns cannot be created or altered.",
		},
	})
}

// GuardrailsResource returns the MCP resource definition for guardrails.
func (h *Handler) GuardrailsResource() mcp.Resource {
	return mcp.NewResource(
		GuardrailsURI,
		"HERA Guardrails",
		mcp.WithResourceDescription("Guardrail codes with their corrections, and the result-size limits"),
		mcp.WithMIMEType("application/json"),
	)
}

// GuardrailDoc is one guardrail in the guardrails resource.
type GuardrailDoc struct {
	Code       guardrail.Code `json:"code"`
	Correction string         `json:"correction"`
}

// HandleGuardrails returns every guardrail code and the active limits.
func (h *Handler) HandleGuardrails(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	codes := guardrail.Codes()
	docs := make([]GuardrailDoc, 0, len(codes))
	for _, c := range codes {
		corr := guardrail.Correction(c)
		if c == guardrail.LedgerImbalance {
			corr = guardrail.BalanceCorrection(h.tolerance)
		}
		docs = append(docs, GuardrailDoc{Code: c, Correction: corr})
	}
	return jsonResource(req.Params.URI, map[string]any{
		"guardrails":             docs,
		"limits":                 h.limits,
		"max_relationship_depth": guardrail.MaxRelationshipDepth,
		"ledger_tolerance":       h.tolerance.String(),
		"grains":                 guardrail.Grains,
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
