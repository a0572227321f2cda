// Package guardrail holds the invariant checks that run before any
// operation touches the row store, and the typed error every caller-visible
// failure is expressed as.
//
// A guardrail failure is data, not a crash: the gateway turns an *Error
// into an {error, guardrail, correction} envelope so the caller can read
// the correction and retry with adjusted arguments.
package guardrail

import (
	"errors"
	"fmt"
)

// Code is the stable machine-readable identifier of a guardrail.
type Code string

const (
	TenantScopeMissing        Code = "TENANT_SCOPE_MISSING"
	SchemaViolation           Code = "SCHEMA_VIOLATION"
	DDLViolation              Code = "DDL_VIOLATION"
	SmartCodeMalformed        Code = "SMART_CODE_MALFORMED"
	SmartCodeUnknown          Code = "SMART_CODE_UNKNOWN"
	LedgerImbalance           Code = "LEDGER_IMBALANCE"
	RelationshipDepthExceeded Code = "RELATIONSHIP_DEPTH_EXCEEDED"
	AggregationGrainMissing   Code = "AGGREGATION_GRAIN_MISSING"
	PartialWriteState         Code = "PARTIAL_WRITE_STATE"
	InvalidArgument           Code = "INVALID_ARGUMENT"
	UnknownOperation          Code = "UNKNOWN_OPERATION"
)

var corrections = map[Code]string{
	TenantScopeMissing:        "Add organization_id to your request. Every operation is scoped to exactly one organization.",
	SchemaViolation:           "Use only the six core tables (core_organizations, core_entities, core_dynamic_data, core_relationships, universal_transactions, universal_transaction_lines) and their documented columns. Store custom attributes as dynamic fields.",
	DDLViolation:              "Schema changes are not allowed. Model new attributes as dynamic fields and new concepts as entity types.",
	SmartCodeMalformed:        "Use the format HERA.<SEGMENT>.<SEGMENT>...v<N> with uppercase alphanumeric segments, e.g. HERA.ACCOUNTING.GL.JOURNAL.v1. Call search_smart_codes to find an existing code.",
	SmartCodeUnknown:          "Call search_smart_codes to find a code already in use for this organization, or set first_instance to true when introducing a new code.",
	LedgerImbalance:           "Balance the entry: the sum of debit lines must equal the sum of credit lines within the ledger tolerance. Add or adjust a line and post again.",
	RelationshipDepthExceeded: "Use depth 1 or 2. For deeper graphs, page manually by calling search_relationships again from the entities returned.",
	AggregationGrainMissing:   "Add time.grain (hour, day, week, month, quarter or year) when using group_by.",
	PartialWriteState:         "The transaction header was written but its lines were not. Inspect or void the header identified by orphan_id before posting again.",
	InvalidArgument:           "Check the argument types and required fields in the tool description.",
	UnknownOperation:          "Use one of the listed tools.",
}

// Correction returns the corrective hint for c.
func Correction(c Code) string {
	return corrections[c]
}

// Codes returns every code in declaration order.
func Codes() []Code {
	return []Code{
		TenantScopeMissing, SchemaViolation, DDLViolation,
		SmartCodeMalformed, SmartCodeUnknown, LedgerImbalance,
		RelationshipDepthExceeded, AggregationGrainMissing,
		PartialWriteState, InvalidArgument, UnknownOperation,
	}
}

// Error is a guardrail violation.
type Error struct {
	Code       Code
	Message    string
	Correction string
	// OrphanID is the id of a transaction header left without lines.
	// Only set for PartialWriteState.
	OrphanID string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, guardrail.New(code, ""))
// works as a code check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New returns an *Error with the standard correction for code.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Correction: corrections[code],
	}
}

// Wrap is New with an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Err = err
	return e
}

// CodeOf extracts the guardrail code from err, if any.
func CodeOf(err error) (Code, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code, true
	}
	return "", false
}
