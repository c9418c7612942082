// Package validator decides document validity by running named rules
// against a document and a provider of related documents and keys.
// Rules accumulate findings in the document's problem report instead
// of failing fast; a document is valid when no rule reported a
// problem. Rule errors are reserved for provider failures.
package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
)

// Rule checks one aspect of a document, writing findings into the
// document's report. The returned error is for lookup failures only;
// a rule that merely finds the document wanting returns nil.
type Rule interface {
	Check(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error

func (f RuleFunc) Check(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
	return f(ctx, doc, p)
}

// ID checks that "id" is present and, when the provider bounds the
// document age, that its embedded timestamp falls inside
// (now - past threshold, now + future threshold).
func ID() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		id, err := doc.ID()
		if err != nil {
			doc.Report().MissingField("id", "metadata")
			return nil
		}
		now := time.Now()
		if d, ok := p.PastThreshold(); ok && id.Time().Before(now.Add(-d)) {
			doc.Report().InvalidValue("id", id.String(),
				fmt.Sprintf("timestamp no older than %s", d), "metadata")
		}
		if d, ok := p.FutureThreshold(); ok && id.Time().After(now.Add(d)) {
			doc.Report().InvalidValue("id", id.String(),
				fmt.Sprintf("timestamp no further than %s ahead", d), "metadata")
		}
		return nil
	})
}

// Ver checks that "ver" is present, does not precede "id", and
// strictly exceeds the latest version of the document known to the
// provider, whose type must also match.
func Ver() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		ver, err := doc.Ver()
		if err != nil {
			doc.Report().MissingField("ver", "metadata")
			return nil
		}
		id, err := doc.ID()
		if err != nil {
			return nil // ID() reports the missing field
		}
		if ver.Compare(id) < 0 {
			doc.Report().InvalidValue("ver", ver.String(), "must not precede id", "metadata")
		}

		last, err := p.GetLastDoc(ctx, id)
		if provider.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		lastVer, err := last.Ver()
		if err == nil && ver.Compare(lastVer) <= 0 {
			doc.Report().InvalidValue("ver", ver.String(),
				fmt.Sprintf("must exceed latest known version %s", lastVer), "metadata")
		}
		dt, derr := doc.DocType()
		lastType, lerr := last.DocType()
		if derr == nil && lerr == nil && !dt.Equal(lastType) {
			doc.Report().InvalidValue("type", dt.String(),
				fmt.Sprintf("must match type %s of earlier versions", lastType), "metadata")
		}
		return nil
	})
}

// Type checks that "type" is present and that a non-first version has
// a known previous version of the same type.
func Type() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		dt, err := doc.DocType()
		if err != nil {
			doc.Report().MissingField("type", "metadata")
			return nil
		}
		id, idErr := doc.ID()
		ver, verErr := doc.Ver()
		if idErr != nil || verErr != nil || ver.Compare(id) == 0 {
			return nil
		}

		first, err := p.GetFirstDoc(ctx, id)
		if provider.IsNotFound(err) {
			doc.Report().FunctionalValidation(
				fmt.Sprintf("no known previous version of document %s", id), "metadata")
			return nil
		}
		if err != nil {
			return err
		}
		firstType, err := first.DocType()
		if err == nil && !dt.Equal(firstType) {
			doc.Report().InvalidValue("type", dt.String(),
				fmt.Sprintf("must match type %s of the first version", firstType), "metadata")
		}
		return nil
	})
}

// fieldAbsent reports a field that a document type does not allow.
func fieldAbsent(doc *signeddoc.Document, field, value string) {
	doc.Report().UnknownField(field, value, "metadata")
}

// docTypeIn reports whether t is one of allowed.
func docTypeIn(t metadata.DocType, allowed []metadata.DocType) bool {
	for _, a := range allowed {
		if t.Equal(a) {
			return true
		}
	}
	return false
}
