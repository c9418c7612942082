// Package report implements an append-only problem report: a structured
// log of soft validation failures attached to a decoded document.
//
// Decoders and validation rules record problems here instead of failing
// fast, so a single pass over a document surfaces every issue at once.
// Hard structural errors (truncation, wrong CBOR types) are returned as
// ordinary Go errors and never appear in a report.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates report entries. Callers should branch on
// Report.IsProblematic, not on individual kinds; the kinds exist for
// diagnosis.
type Kind string

const (
	MissingField         Kind = "missing_field"
	UnknownField         Kind = "unknown_field"
	InvalidValue         Kind = "invalid_value"
	InvalidEncoding      Kind = "invalid_encoding"
	FunctionalValidation Kind = "functional_validation"
	DuplicateField       Kind = "duplicate_field"
	ConversionError      Kind = "conversion_error"
	Other                Kind = "other"
)

// Entry is a single recorded problem. Only the fields relevant to its
// Kind are populated.
type Entry struct {
	Kind        Kind   `json:"kind"`
	Field       string `json:"field,omitempty"`
	Value       string `json:"value,omitempty"`
	Constraint  string `json:"constraint,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Context     string `json:"context,omitempty"`
}

func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%q", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " value=%q", e.Value)
	}
	if e.Constraint != "" {
		fmt.Fprintf(&b, " constraint=%q", e.Constraint)
	}
	if e.Explanation != "" {
		fmt.Fprintf(&b, " explanation=%q", e.Explanation)
	}
	if e.Context != "" {
		fmt.Fprintf(&b, " context=%q", e.Context)
	}
	return b.String()
}

// Report accumulates entries in insertion order. A Report is owned by a
// single document and mutated by whichever decoder or rule is currently
// running against it; rules run sequentially so no locking is needed.
type Report struct {
	context string
	entries []Entry
}

// New creates an empty report. The context string describes what is
// being decoded or validated and is attached to every entry.
func New(context string) *Report {
	return &Report{context: context}
}

// IsProblematic reports whether any entry has been recorded.
func (r *Report) IsProblematic() bool {
	return len(r.entries) > 0
}

// Entries returns the recorded entries in insertion order.
func (r *Report) Entries() []Entry {
	return r.entries
}

func (r *Report) add(e Entry) {
	if e.Context == "" {
		e.Context = r.context
	} else if r.context != "" {
		e.Context = r.context + ", " + e.Context
	}
	r.entries = append(r.entries, e)
}

func (r *Report) MissingField(field, context string) {
	r.add(Entry{Kind: MissingField, Field: field, Context: context})
}

func (r *Report) UnknownField(field, value, context string) {
	r.add(Entry{Kind: UnknownField, Field: field, Value: value, Context: context})
}

func (r *Report) InvalidValue(field, value, constraint, context string) {
	r.add(Entry{Kind: InvalidValue, Field: field, Value: value, Constraint: constraint, Context: context})
}

func (r *Report) InvalidEncoding(field, encoded, expected, context string) {
	r.add(Entry{Kind: InvalidEncoding, Field: field, Value: encoded, Constraint: expected, Context: context})
}

func (r *Report) FunctionalValidation(explanation, context string) {
	r.add(Entry{Kind: FunctionalValidation, Explanation: explanation, Context: context})
}

func (r *Report) DuplicateField(field, description, context string) {
	r.add(Entry{Kind: DuplicateField, Field: field, Explanation: description, Context: context})
}

func (r *Report) ConversionError(field, value, expected, context string) {
	r.add(Entry{Kind: ConversionError, Field: field, Value: value, Constraint: expected, Context: context})
}

func (r *Report) Other(description, context string) {
	r.add(Entry{Kind: Other, Explanation: description, Context: context})
}

func (r *Report) String() string {
	if len(r.entries) == 0 {
		return "no problems"
	}
	lines := make([]string, len(r.entries))
	for i, e := range r.entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON renders the entry list, for diagnostic dumps.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.entries)
}
