// Package gateway exposes the read and write services as MCP tools.
//
// Each tool follows the same pattern:
// - A struct with its service injected via constructor
// - Definition() returns the mcp.Tool schema
// - Run() decodes the arguments and calls the service
//
// The Gateway owns everything tools have in common: tenant scoping before
// dispatch, JSON encoding of results, the error envelope and call logging.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/heraerp/hera-analytics/internal/command"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/query"
	"github.com/heraerp/hera-analytics/internal/smartcode"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// OrgArg is the argument every tool is scoped by.
const OrgArg = "organization_id"

// Tool is one MCP operation.
type Tool interface {
	Definition() mcp.Tool
	Run(ctx context.Context, args *Args) (any, error)
}

// Envelope is the body of every failed call. Guardrail and Correction are
// null for failures that are not guardrail violations.
type Envelope struct {
	Error      string          `json:"error"`
	Guardrail  *guardrail.Code `json:"guardrail"`
	Correction *string         `json:"correction"`
	OrphanID   string          `json:"orphan_id,omitempty"`
}

// EnvelopeOf describes err for the caller.
func EnvelopeOf(err error) Envelope {
	var ge *guardrail.Error
	if !errors.As(err, &ge) {
		return Envelope{Error: err.Error()}
	}
	code := ge.Code
	env := Envelope{Error: ge.Message, Guardrail: &code, OrphanID: ge.OrphanID}
	if ge.Err != nil {
		env.Error += ": " + ge.Err.Error()
	}
	if ge.Correction != "" {
		c := ge.Correction
		env.Correction = &c
	}
	return env
}

// Gateway dispatches named calls to tools.
type Gateway struct {
	tools map[string]Tool
	order []Tool
	log   *zap.Logger
}

// New creates a Gateway serving tools in the given order. A nil logger
// disables call logging.
func New(log *zap.Logger, tools ...Tool) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gateway{tools: make(map[string]Tool, len(tools)), log: log}
	for _, t := range tools {
		g.tools[t.Definition().Name] = t
		g.order = append(g.order, t)
	}
	return g
}

// All returns every tool in the order they are listed to clients.
func All(reads *query.Service, writes *command.Service, codes *smartcode.Engine) []Tool {
	return []Tool{
		NewSearchSmartCodesTool(codes),
		NewValidateSmartCodeTool(codes),
		NewQueryEntitiesTool(reads),
		NewQueryTransactionsTool(reads),
		NewSearchRelationshipsTool(reads),
		NewPostTransactionTool(writes),
		NewCreateEntityTool(writes),
		NewSetDynamicFieldTool(writes),
		NewUpdateEntityStatusTool(writes),
		NewCreateRelationshipTool(writes),
	}
}

// Tools returns the registered tools in registration order.
func (g *Gateway) Tools() []Tool { return g.order }

// Handler adapts Call to the mcp-go tool handler signature. Failures are
// reported in the result, never as a protocol error.
func (g *Gateway) Handler(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return g.Call(ctx, name, req.GetArguments()), nil
	}
}

// Call runs the named tool with raw JSON arguments.
func (g *Gateway) Call(ctx context.Context, name string, raw map[string]any) *mcp.CallToolResult {
	start := time.Now()
	args := NewArgs(raw)
	org := args.String(OrgArg)

	out, err := g.dispatch(ctx, name, org, args)
	var res *mcp.CallToolResult
	if err == nil {
		res, err = encode(out)
	}
	if err != nil {
		res = failure(err)
	}
	g.logCall(name, org, time.Since(start), err)
	return res
}

func (g *Gateway) dispatch(ctx context.Context, name, org string, args *Args) (any, error) {
	t, ok := g.tools[name]
	if !ok {
		return nil, guardrail.New(guardrail.UnknownOperation, "unknown tool %q", name)
	}
	if err := guardrail.RequireOrg(org); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.Run(ctx, args)
}

func (g *Gateway) logCall(name, org string, d time.Duration, err error) {
	fields := []zap.Field{
		zap.String("tool", name),
		zap.String("organization_id", org),
		zap.Duration("duration", d),
	}
	switch code, ok := guardrail.CodeOf(err); {
	case err == nil:
		g.log.Info("tool call", fields...)
	case ok:
		g.log.Warn("tool call rejected", append(fields, zap.String("guardrail", string(code)))...)
	default:
		g.log.Error("tool call failed", append(fields, zap.Error(err))...)
	}
}

func encode(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

func failure(err error) *mcp.CallToolResult {
	b, merr := json.Marshal(EnvelopeOf(err))
	if merr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	res := mcp.NewToolResultText(string(b))
	res.IsError = true
	return res
}

// orgParam declares organization_id on a tool.
func orgParam() mcp.ToolOption {
	return mcp.WithString(OrgArg,
		mcp.Required(),
		mcp.Description("Organization the call is scoped to. Every read and write sees only this tenant's rows."),
	)
}
