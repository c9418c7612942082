package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
)

// RefPolicy describes how a reference field may be populated:
// the document types it may point at, whether more than one
// reference is allowed, and whether the field may be absent.
type RefPolicy struct {
	Allowed  []metadata.DocType
	Multiple bool
	Optional bool
}

type refFieldRule struct {
	field    string
	get      func(*metadata.Metadata) (metadata.DocumentRefs, error)
	policy   RefPolicy
	threaded bool
}

// Ref checks the "ref" field against a policy, resolving every
// reference through the provider.
func Ref(policy RefPolicy) Rule {
	return refFieldRule{field: metadata.KeyRef, get: (*metadata.Metadata).Ref, policy: policy}
}

// RefNotSpecified checks that "ref" is absent.
func RefNotSpecified() Rule { return refAbsentRule{metadata.KeyRef, (*metadata.Metadata).Ref} }

// Template checks the "template" field against a policy.
func Template(policy RefPolicy) Rule {
	return refFieldRule{field: metadata.KeyTemplate, get: (*metadata.Metadata).Template, policy: policy}
}

// TemplateNotSpecified checks that "template" is absent.
func TemplateNotSpecified() Rule {
	return refAbsentRule{metadata.KeyTemplate, (*metadata.Metadata).Template}
}

// Reply checks the "reply" field against a policy and requires the
// replied-to document to reference the same document this one does.
func Reply(policy RefPolicy) Rule {
	return refFieldRule{field: metadata.KeyReply, get: (*metadata.Metadata).Reply, policy: policy, threaded: true}
}

// ReplyNotSpecified checks that "reply" is absent.
func ReplyNotSpecified() Rule { return refAbsentRule{metadata.KeyReply, (*metadata.Metadata).Reply} }

// Parameters checks the "parameters" field against a policy.
func Parameters(policy RefPolicy) Rule {
	return refFieldRule{field: metadata.KeyParameters, get: (*metadata.Metadata).Parameters, policy: policy}
}

// ParametersNotSpecified checks that "parameters" is absent.
func ParametersNotSpecified() Rule {
	return refAbsentRule{metadata.KeyParameters, (*metadata.Metadata).Parameters}
}

func (r refFieldRule) Check(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
	refs, err := r.get(doc.Meta())
	if err != nil {
		if !r.policy.Optional {
			doc.Report().MissingField(r.field, "metadata")
		}
		return nil
	}
	if len(refs) == 0 {
		doc.Report().InvalidValue(r.field, "[]", "at least one reference", "metadata")
		return nil
	}
	if !r.policy.Multiple && len(refs) > 1 {
		doc.Report().InvalidValue(r.field, fmt.Sprintf("%d references", len(refs)),
			"a single reference", "metadata")
	}

	for _, ref := range refs {
		referenced, err := p.GetDoc(ctx, ref)
		if provider.IsNotFound(err) {
			doc.Report().FunctionalValidation(
				fmt.Sprintf("%s: referenced document %s is unknown", r.field, ref.String()), "metadata")
			continue
		}
		if err != nil {
			return err
		}

		if dt, err := referenced.DocType(); err != nil || !docTypeIn(dt, r.policy.Allowed) {
			doc.Report().InvalidValue(r.field, ref.String(),
				"reference to one of the allowed document types", "metadata")
		}
		id, idErr := referenced.ID()
		ver, verErr := referenced.Ver()
		if idErr != nil || verErr != nil || id.Compare(ref.ID) != 0 || ver.Compare(ref.Ver) != 0 {
			doc.Report().FunctionalValidation(
				fmt.Sprintf("%s: document returned for %s carries different id/ver", r.field, ref.String()), "metadata")
		}
		if r.threaded {
			r.checkThread(doc, referenced, ref)
		}
	}
	return nil
}

// checkThread enforces the comment-thread invariant: the replied-to
// document must reference the same document this one does.
func (r refFieldRule) checkThread(doc, repliedTo *signeddoc.Document, ref metadata.DocumentRef) {
	ourRef, err := doc.Meta().Ref()
	if err != nil {
		return // the ref rule reports the missing field
	}
	theirRef, err := repliedTo.Meta().Ref()
	if err != nil || !ourRef.Equal(theirRef) {
		doc.Report().FunctionalValidation(
			fmt.Sprintf("reply: document %s does not reference the same document", ref.String()), "metadata")
	}
}

type refAbsentRule struct {
	field string
	get   func(*metadata.Metadata) (metadata.DocumentRefs, error)
}

func (r refAbsentRule) Check(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
	if refs, err := r.get(doc.Meta()); err == nil {
		fieldAbsent(doc, r.field, refs.String())
	}
	return nil
}

// Section checks that "section", when present, is a syntactically
// valid JSON-Path expression.
func Section(optional bool) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		s, err := doc.Meta().Section()
		if err != nil {
			if !optional {
				doc.Report().MissingField(metadata.KeySection, "metadata")
			}
			return nil
		}
		if _, err := jp.ParseString(string(s)); err != nil {
			doc.Report().InvalidValue(metadata.KeySection, string(s),
				"a valid JSON-Path expression", "metadata")
		}
		return nil
	})
}

// SectionNotSpecified checks that "section" is absent.
func SectionNotSpecified() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if s, err := doc.Meta().Section(); err == nil {
			fieldAbsent(doc, metadata.KeySection, string(s))
		}
		return nil
	})
}

// Collaborators checks the "collaborators" field presence policy.
func Collaborators(optional bool) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		ids, err := doc.Meta().Collaborators()
		if err != nil {
			if !optional {
				doc.Report().MissingField(metadata.KeyCollaborators, "metadata")
			}
			return nil
		}
		if len(ids) == 0 {
			doc.Report().InvalidValue(metadata.KeyCollaborators, "[]",
				"at least one collaborator", "metadata")
		}
		return nil
	})
}

// CollaboratorsNotSpecified checks that "collaborators" is absent.
func CollaboratorsNotSpecified() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if ids, err := doc.Meta().Collaborators(); err == nil {
			ss := make([]string, len(ids))
			for i, id := range ids {
				ss[i] = id.String()
			}
			fieldAbsent(doc, metadata.KeyCollaborators, strings.Join(ss, ", "))
		}
		return nil
	})
}

// RevocationsAllowed checks the "revocations" field presence policy.
func RevocationsAllowed(optional bool) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if _, err := doc.Meta().Revocations(); err != nil && !optional {
			doc.Report().MissingField(metadata.KeyRevocations, "metadata")
		}
		return nil
	})
}

// RevocationsNotSpecified checks that "revocations" is absent.
func RevocationsNotSpecified() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if rev, err := doc.Meta().Revocations(); err == nil {
			fieldAbsent(doc, metadata.KeyRevocations, rev.String())
		}
		return nil
	})
}
