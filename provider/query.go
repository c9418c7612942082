package provider

import (
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// Query is a product of optional per-field selectors. A nil selector
// matches everything; a document matches the query when every
// non-nil selector accepts it.
type Query struct {
	ID         *UUIDSelector
	Ver        *UUIDSelector
	Type       *TypeSelector
	Ref        *RefSelector
	Template   *RefSelector
	Reply      *RefSelector
	Parameters *RefSelector
}

// Matches reports whether a document satisfies every set selector.
// Documents missing a selected field do not match.
func (q Query) Matches(doc *signeddoc.Document) bool {
	if q.ID != nil {
		id, err := doc.ID()
		if err != nil || !q.ID.Matches(id) {
			return false
		}
	}
	if q.Ver != nil {
		ver, err := doc.Ver()
		if err != nil || !q.Ver.Matches(ver) {
			return false
		}
	}
	if q.Type != nil {
		dt, err := doc.DocType()
		if err != nil || !q.Type.Matches(dt) {
			return false
		}
	}
	for _, sel := range []struct {
		s   *RefSelector
		get func() (metadata.DocumentRefs, error)
	}{
		{q.Ref, doc.Meta().Ref},
		{q.Template, doc.Meta().Template},
		{q.Reply, doc.Meta().Reply},
		{q.Parameters, doc.Meta().Parameters},
	} {
		if sel.s == nil {
			continue
		}
		refs, err := sel.get()
		if err != nil || !sel.s.Matches(refs) {
			return false
		}
	}
	return true
}

type selectorKind int

const (
	selectEq selectorKind = iota
	selectRange
	selectIn
)

// UUIDSelector selects UUIDv7 values by equality, timestamp-ordered
// range, or set membership.
type UUIDSelector struct {
	kind   selectorKind
	eq     uuid.V7
	lo, hi uuid.V7
	set    []uuid.V7
}

// UUIDEq matches exactly one value.
func UUIDEq(v uuid.V7) *UUIDSelector {
	return &UUIDSelector{kind: selectEq, eq: v}
}

// UUIDRange matches values with lo <= v <= hi in UUIDv7 order.
func UUIDRange(lo, hi uuid.V7) *UUIDSelector {
	return &UUIDSelector{kind: selectRange, lo: lo, hi: hi}
}

// UUIDIn matches any member of the set.
func UUIDIn(vs ...uuid.V7) *UUIDSelector {
	return &UUIDSelector{kind: selectIn, set: vs}
}

func (s *UUIDSelector) Matches(v uuid.V7) bool {
	switch s.kind {
	case selectEq:
		return v.Compare(s.eq) == 0
	case selectRange:
		return v.Compare(s.lo) >= 0 && v.Compare(s.hi) <= 0
	default:
		for _, m := range s.set {
			if v.Compare(m) == 0 {
				return true
			}
		}
		return false
	}
}

// TypeSelector selects document types by equality or set membership.
type TypeSelector struct {
	set []metadata.DocType
}

// TypeEq matches exactly one document type.
func TypeEq(t metadata.DocType) *TypeSelector {
	return &TypeSelector{set: []metadata.DocType{t}}
}

// TypeIn matches any member of the set.
func TypeIn(ts ...metadata.DocType) *TypeSelector {
	return &TypeSelector{set: ts}
}

func (s *TypeSelector) Matches(t metadata.DocType) bool {
	for _, m := range s.set {
		if t.Equal(m) {
			return true
		}
	}
	return false
}

// RefSelector selects reference fields; the field matches when any
// of its references equals a selected reference (locators ignored).
type RefSelector struct {
	set []metadata.DocumentRef
}

// RefEq matches fields containing the given reference.
func RefEq(r metadata.DocumentRef) *RefSelector {
	return &RefSelector{set: []metadata.DocumentRef{r}}
}

// RefIn matches fields containing any of the given references.
func RefIn(rs ...metadata.DocumentRef) *RefSelector {
	return &RefSelector{set: rs}
}

func (s *RefSelector) Matches(refs metadata.DocumentRefs) bool {
	for _, have := range refs {
		for _, want := range s.set {
			if have.Equal(want) {
				return true
			}
		}
	}
	return false
}
