package validator

import (
	"context"

	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
)

// Validator holds rule sets keyed by document type plus rules shared
// by every type. Rules run sequentially in registration order; the
// report preserves insertion order.
type Validator struct {
	common []Rule
	byType map[string][]Rule
}

// New returns a validator with no rules registered.
func New() *Validator {
	return &Validator{byType: map[string][]Rule{}}
}

// Common registers rules that run for every document type.
func (v *Validator) Common(rules ...Rule) *Validator {
	v.common = append(v.common, rules...)
	return v
}

// Register appends rules for one document type.
func (v *Validator) Register(dt metadata.DocType, rules ...Rule) *Validator {
	key := dt.String()
	v.byType[key] = append(v.byType[key], rules...)
	return v
}

// KnownType reports whether rules are registered for a document type.
func (v *Validator) KnownType(dt metadata.DocType) bool {
	_, ok := v.byType[dt.String()]
	return ok
}

// Validate runs every applicable rule against the document and
// reports whether its problem report stayed clean. The error return
// is for provider failures only; an invalid document is (false, nil).
func (v *Validator) Validate(ctx context.Context, doc *signeddoc.Document, p provider.Provider) (bool, error) {
	for _, rule := range v.common {
		if err := rule.Check(ctx, doc, p); err != nil {
			return false, err
		}
	}

	dt, err := doc.DocType()
	if err != nil {
		doc.Report().MissingField(metadata.KeyType, "metadata")
		return false, nil
	}
	rules, ok := v.byType[dt.String()]
	if !ok {
		doc.Report().Other("unknown document type "+dt.String(), "metadata")
		return false, nil
	}
	for _, rule := range rules {
		if err := rule.Check(ctx, doc, p); err != nil {
			return false, err
		}
	}
	return !doc.Report().IsProblematic(), nil
}
