package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/heraerp/hera-analytics/internal/smartcode"
	"github.com/shopspring/decimal"
)

// Header status values.
const (
	StatusPosted   = "posted"
	StatusOrphaned = "orphaned"
)

// Header is the caller-supplied part of a transaction header. A declared
// total is ignored: total_amount is always the sum of the line amounts.
type Header struct {
	TransactionType string
	TransactionDate time.Time
	SourceEntityID  string
	TargetEntityID  string
	Metadata        map[string]any
}

// LineInput is one line to post. Zero LineNumber, nil UnitPrice, nil
// Quantity and empty SmartCode are defaulted.
type LineInput struct {
	LineNumber  int
	EntityID    string
	LineType    string
	Side        string
	Description string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	Amount      decimal.Decimal
	SmartCode   string
	Metadata    map[string]any
}

// side resolves the debit/credit marker from Side, then LineType, then
// metadata.
func (l LineInput) side() guardrail.Side {
	for _, c := range []string{l.Side, l.LineType} {
		if s := guardrail.ParseSide(c); s != "" {
			return s
		}
	}
	for _, k := range []string{"side", "debit_credit", "dr_cr"} {
		if v, ok := l.Metadata[k].(string); ok {
			if s := guardrail.ParseSide(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// PostInput is a transaction to post.
type PostInput struct {
	OrgID     string
	SmartCode string
	// FirstInstance lets a strict deployment accept a code nobody in the
	// organization has used yet.
	FirstInstance bool
	Header        Header
	Lines         []LineInput
}

// Upgrade points at a newer version of the smart code that was used.
type Upgrade struct {
	Current       string `json:"current"`
	Suggested     string `json:"suggested"`
	LatestVersion int    `json:"latest_version"`
}

// PostResult is a posted transaction.
type PostResult struct {
	Transaction      schema.Transaction       `json:"transaction"`
	Lines            []schema.TransactionLine `json:"lines"`
	Balance          *guardrail.Balance       `json:"balance,omitempty"`
	SmartCodeUpgrade *Upgrade                 `json:"smart_code_upgrade,omitempty"`
}

// PostTransaction validates and writes a transaction header and its lines.
//
// Gates run in order and each one fails before anything is written: the
// smart code, then the debit/credit balance for GL transactions. With a
// transactional store the header and lines commit together. Otherwise a
// line failure after the header was written is reported as
// PartialWriteState carrying the header id, and the header is marked
// orphaned.
func (s *Service) PostTransaction(ctx context.Context, in PostInput) (*PostResult, error) {
	if err := guardrail.RequireOrg(in.OrgID); err != nil {
		return nil, err
	}
	if len(in.Lines) == 0 {
		return nil, guardrail.New(guardrail.InvalidArgument, "lines must contain at least one line")
	}

	v, err := s.codes.Check(ctx, in.OrgID, in.SmartCode, s.strict && !in.FirstInstance)
	if err != nil {
		return nil, err
	}
	for i, l := range in.Lines {
		if l.SmartCode != "" && !smartcode.Valid(l.SmartCode) {
			return nil, guardrail.New(guardrail.SmartCodeMalformed,
				"line %d smart code %q is malformed", i+1, l.SmartCode)
		}
	}

	typ := in.Header.TransactionType
	if typ == "" {
		c, _ := smartcode.Parse(in.SmartCode)
		typ = strings.ToLower(c.Segments[len(c.Segments)-1])
	}

	res := &PostResult{}
	if guardrail.IsGL(in.SmartCode, typ) {
		ledger := make([]guardrail.LedgerLine, len(in.Lines))
		for i, l := range in.Lines {
			ledger[i] = guardrail.LedgerLine{Side: l.side(), Amount: l.Amount}
		}
		bal, err := guardrail.CheckBalance(ledger, s.tolerance)
		if err != nil {
			return nil, err
		}
		res.Balance = &bal
	}
	if v.HigherVersionExists {
		res.SmartCodeUpgrade = &Upgrade{
			Current:       in.SmartCode,
			Suggested:     v.SuggestedCode,
			LatestVersion: v.LatestVersion,
		}
	}

	total := decimal.Zero
	for _, l := range in.Lines {
		total = total.Add(l.Amount)
	}
	date := in.Header.TransactionDate
	if date.IsZero() {
		date = s.now()
	}
	header := schema.Row{
		"organization_id":    in.OrgID,
		"transaction_type":   typ,
		"transaction_code":   "TXN-" + s.ids.Generate().String(),
		"smart_code":         in.SmartCode,
		"transaction_date":   date.UTC(),
		"total_amount":       total.InexactFloat64(),
		"transaction_status": StatusPosted,
		"metadata":           nonNil(in.Header.Metadata),
	}
	if in.Header.SourceEntityID != "" {
		header["source_entity_id"] = in.Header.SourceEntityID
	}
	if in.Header.TargetEntityID != "" {
		header["target_entity_id"] = in.Header.TargetEntityID
	}

	var headerID string
	atomic, err := s.atomically(ctx, func(st rowstore.Store) error {
		h, err := st.Insert(ctx, schema.Transactions, header)
		if err != nil {
			return fmt.Errorf("insert transaction header: %w", err)
		}
		headerID = h.String("id")
		res.Transaction = schema.TransactionFromRow(h)

		res.Lines = make([]schema.TransactionLine, 0, len(in.Lines))
		for i, l := range in.Lines {
			row, err := st.Insert(ctx, schema.TransactionLines, lineRow(in.OrgID, headerID, i, l))
			if err != nil {
				return &lineError{line: i + 1, err: err}
			}
			res.Lines = append(res.Lines, schema.TransactionLineFromRow(row))
		}
		return nil
	})
	if err == nil {
		return res, nil
	}

	var le *lineError
	if atomic || headerID == "" || !errors.As(err, &le) {
		return nil, fmt.Errorf("post transaction: %w", err)
	}
	perr := guardrail.Wrap(guardrail.PartialWriteState, le,
		"transaction header %s was written but line %d failed", headerID, le.line)
	perr.OrphanID = headerID
	if _, uerr := s.store.Update(ctx, schema.Transactions, in.OrgID, headerID,
		schema.Row{"transaction_status": StatusOrphaned}); uerr != nil {
		perr.Message += fmt.Sprintf("; marking it orphaned also failed: %v", uerr)
	}
	return nil, perr
}

type lineError struct {
	line int
	err  error
}

func (e *lineError) Error() string { return fmt.Sprintf("insert line %d: %v", e.line, e.err) }
func (e *lineError) Unwrap() error { return e.err }

func lineRow(orgID, txnID string, i int, l LineInput) schema.Row {
	n := l.LineNumber
	if n <= 0 {
		n = i + 1
	}
	qty := decimal.NewFromInt(1)
	if l.Quantity != nil {
		qty = *l.Quantity
	}
	price := l.Amount
	if l.UnitPrice != nil {
		price = *l.UnitPrice
	}
	code := l.SmartCode
	if code == "" {
		code = DefaultLineSmartCode
	}
	meta := map[string]any{}
	for k, v := range l.Metadata {
		meta[k] = v
	}
	if side := l.side(); side != "" {
		meta["side"] = string(side)
	}

	row := schema.Row{
		"organization_id": orgID,
		"transaction_id":  txnID,
		"line_number":     n,
		"quantity":        qty.InexactFloat64(),
		"unit_price":      price.InexactFloat64(),
		"line_amount":     l.Amount.InexactFloat64(),
		"smart_code":      code,
		"metadata":        meta,
	}
	if l.EntityID != "" {
		row["entity_id"] = l.EntityID
	}
	if l.LineType != "" {
		row["line_type"] = l.LineType
	}
	if l.Description != "" {
		row["description"] = l.Description
	}
	return row
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
