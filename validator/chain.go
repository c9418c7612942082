package validator

import (
	"context"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
)

// Chain checks the "chain" field of checkpoint documents. Height zero
// is the chain root and carries no reference; every later link must
// point at an earlier version of the same document, of an allowed
// type, whose own chain height is exactly one less.
func Chain(optional bool, allowed ...metadata.DocType) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		ch, err := doc.Meta().Chain()
		if err != nil {
			if !optional {
				doc.Report().MissingField(metadata.KeyChain, "metadata")
			}
			return nil
		}

		ref := ch.DocumentRef()
		if ch.Height() == 0 {
			if ref != nil {
				doc.Report().InvalidValue(metadata.KeyChain, ch.String(),
					"height 0 carries no reference", "metadata")
			}
			return nil
		}
		if ref == nil {
			doc.Report().InvalidValue(metadata.KeyChain, ch.String(),
				"non-zero height requires a reference", "metadata")
			return nil
		}

		id, idErr := doc.ID()
		ver, verErr := doc.Ver()
		if idErr == nil && id.Compare(ref.ID) != 0 {
			doc.Report().InvalidValue(metadata.KeyChain, ref.String(),
				"chained document must share this document's id", "metadata")
		}
		if verErr == nil && ver.Compare(ref.Ver) <= 0 {
			doc.Report().InvalidValue(metadata.KeyChain, ref.String(),
				"chained version must precede this one", "metadata")
		}

		previous, err := p.GetDoc(ctx, *ref)
		if provider.IsNotFound(err) {
			doc.Report().FunctionalValidation(
				fmt.Sprintf("chained document %s is unknown", ref.String()), "metadata")
			return nil
		}
		if err != nil {
			return err
		}

		if len(allowed) > 0 {
			if dt, err := previous.DocType(); err != nil || !docTypeIn(dt, allowed) {
				doc.Report().InvalidValue(metadata.KeyChain, ref.String(),
					"chained document of an allowed type", "metadata")
			}
		}
		prevChain, err := previous.Meta().Chain()
		if err != nil || prevChain.Height() != ch.Height()-1 {
			doc.Report().FunctionalValidation(
				fmt.Sprintf("chained document %s must sit at height %d", ref.String(), ch.Height()-1),
				"metadata")
		}
		return nil
	})
}

// ChainNotSpecified checks that "chain" is absent.
func ChainNotSpecified() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if ch, err := doc.Meta().Chain(); err == nil {
			fieldAbsent(doc, metadata.KeyChain, ch.String())
		}
		return nil
	})
}
