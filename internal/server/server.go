// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the row store, builds the read
// and write services on top of it and registers their tools, prompts and
// resources. No business logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/heraerp/hera-analytics/internal/command"
	"github.com/heraerp/hera-analytics/internal/config"
	"github.com/heraerp/hera-analytics/internal/gateway"
	"github.com/heraerp/hera-analytics/internal/prompts"
	"github.com/heraerp/hera-analytics/internal/query"
	"github.com/heraerp/hera-analytics/internal/resources"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/smartcode"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts and
// resources registered.
//
// The returned cleanup function closes the row store and must be called
// on shutdown (typically via defer). It is always non-nil.
func New(cfg *config.Config, log *zap.Logger) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	store, err := rowstore.Open(cfg.Database.Path)
	if err != nil {
		return nil, noop, fmt.Errorf("opening row store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("row store close", zap.Error(err))
		}
	}

	gw, err := newGateway(cfg, store, log)
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"hera-analytics",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(cfg.Tolerance().String())),
	)

	// --- Register tools ---

	for _, t := range gw.Tools() {
		def := t.Definition()
		s.AddTool(def, gw.Handler(def.Name))
	}

	// --- Register prompts ---

	guide := prompts.NewGuidePrompt()
	s.AddPrompt(guide.Definition(), guide.Handle)

	// --- Register resources ---

	rh := resources.NewHandler(cfg.Limits, cfg.Tolerance())
	s.AddResource(rh.SchemaResource(), rh.HandleSchema)
	s.AddResource(rh.GuardrailsResource(), rh.HandleGuardrails)

	log.Info("server ready",
		zap.String("version", Version),
		zap.String("database", cfg.Database.Path),
		zap.Int("tools", len(gw.Tools())),
		zap.Bool("strict_smart_codes", cfg.Ledger.StrictSmartCodes),
	)
	return s, cleanup, nil
}

// newGateway builds the services over store and the gateway over them.
func newGateway(cfg *config.Config, store rowstore.Store, log *zap.Logger) (*gateway.Gateway, error) {
	codes := smartcode.NewEngine(store, cfg.Limits)

	qopts := query.DefaultOptions()
	qopts.Limits = cfg.Limits
	qopts.DefaultWindow = cfg.Ledger.DefaultWindow
	reads := query.New(store, qopts)

	copts := command.DefaultOptions()
	tolerance := cfg.Tolerance()
	copts.Tolerance = &tolerance
	copts.StrictSmartCodes = cfg.Ledger.StrictSmartCodes
	copts.NodeID = cfg.NodeID
	writes, err := command.New(store, codes, copts)
	if err != nil {
		return nil, err
	}

	return gateway.New(log.Named("gateway"), gateway.All(reads, writes, codes)...), nil
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the server.
func serverInstructions(tolerance string) string {
	return `You have access to HERA analytics, a guarded gateway over a multi-tenant
business data model.

## Data model
Six tables hold everything: organizations, entities, dynamic fields,
relationships, transactions and transaction lines. Custom attributes are
dynamic fields on an entity, never new columns. Read hera://schema/sacred-six
for the exact columns.

## Rules
- Every call takes organization_id. Calls without it are rejected, and a call
  only ever sees that organization's rows.
- Every row has a smart code: HERA.<SEGMENT>...v<N>, e.g.
  HERA.ACCOUNTING.GL.JOURNAL.v1. Call search_smart_codes before writing and
  reuse what the organization already uses.
- Accounting (GL) transactions must balance: debits equal credits within ` + tolerance + `.
- search_relationships goes at most 2 levels deep.
- query_transactions returns at most 50 raw rows. For trends use group_by
  with time.grain; grouped results are not truncated.

## Errors
A failed call returns {error, guardrail, correction}. Read correction, fix
the arguments and call again. Do not repeat a call unchanged. The full list
of guardrails is at hera://guardrails.`
}
