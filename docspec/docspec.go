// Package docspec embeds the declarative signed-document registry and
// turns it into validator rule sets. The registry enumerates every
// document type, the policy of each metadata field, the content type,
// and the signer roles; Load checks it for internal consistency and
// NewValidator translates it into rules.
package docspec

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/content"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/uuid"
	"github.com/catalyst-forge/go-signed-doc/validator"
)

//go:embed signed_doc.json
var specFS embed.FS

// Document type identifiers from the registry.
var (
	TypeProposal                    = metadata.MustDocType("7808d2ba-d511-40af-84e8-c0d1625fdfdc")
	TypeProposalFormTemplate        = metadata.MustDocType("0ce8ab38-9258-4fbc-a62e-7faa6e58318f")
	TypeProposalComment             = metadata.MustDocType("b679ded3-0e7c-41ba-89f8-da62a17898ea")
	TypeProposalCommentFormTemplate = metadata.MustDocType("0b8424d4-ebfd-46e3-9577-1775a69d290c")
	TypeProposalSubmissionAction    = metadata.MustDocType("5e60e623-ad02-4a1b-a1ac-406db978ee48")
	TypeBrandParameters             = metadata.MustDocType("3e4808cc-c86e-467b-9702-d60baa9d1fca")
	TypeCampaignParameters          = metadata.MustDocType("0110ea96-a555-47ce-8408-36efe6ed6f7c")
	TypeCategoryParameters          = metadata.MustDocType("48c20109-362a-4d32-9bba-e0a9cf8b45be")
)

// Presence policy values a field definition may carry.
const (
	RequiredYes      = "yes"
	RequiredOptional = "optional"
	RequiredExcluded = "excluded"
)

// Spec is the parsed registry.
type Spec struct {
	ContentTypes map[string]struct{} `json:"contentTypes"`
	Docs         map[string]DocSpec  `json:"docs"`
}

// DocSpec defines one document type.
type DocSpec struct {
	Type     string      `json:"type"`
	Headers  HeaderSpecs `json:"headers"`
	Metadata FieldSpecs  `json:"metadata"`
	Signers  SignerSpec  `json:"signers"`
}

// HeaderSpecs holds the COSE header policies of a document type.
type HeaderSpecs struct {
	ContentType     HeaderSpec `json:"content type"`
	ContentEncoding HeaderSpec `json:"content-encoding"`
}

// HeaderSpec is the policy of one header value.
type HeaderSpec struct {
	Required string `json:"required"`
	Value    string `json:"value"`
}

// FieldSpecs holds the metadata field policies of a document type.
type FieldSpecs struct {
	Ref           *FieldSpec `json:"ref"`
	Template      *FieldSpec `json:"template"`
	Reply         *FieldSpec `json:"reply"`
	Section       *FieldSpec `json:"section"`
	Collaborators *FieldSpec `json:"collaborators"`
	Revocations   *FieldSpec `json:"revocations"`
	Parameters    *FieldSpec `json:"parameters"`
	Chain         *FieldSpec `json:"chain"`
}

// FieldSpec is the policy of one metadata field. Type names other
// documents of the registry.
type FieldSpec struct {
	Required string   `json:"required"`
	Type     DocNames `json:"type"`
	Multiple bool     `json:"multiple"`
}

// SignerSpec restricts who may sign a document type: either a role
// set or admin IDs. Update lifts the author check to collaborators.
type SignerSpec struct {
	Roles  []int      `json:"roles"`
	Admin  bool       `json:"admin"`
	Update UpdateSpec `json:"update"`
}

// UpdateSpec describes who may publish new versions.
type UpdateSpec struct {
	Collaborators bool `json:"collaborators"`
}

// DocNames accepts a single name or a list of names.
type DocNames []string

func (n *DocNames) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*n = DocNames{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*n = many
	return nil
}

// Load parses the embedded registry and checks it for internal
// consistency.
func Load() (*Spec, error) {
	raw, err := specFS.ReadFile("signed_doc.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded registry: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	if err := spec.check(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) check() error {
	for name, doc := range s.Docs {
		if _, err := doc.DocType(); err != nil {
			return fmt.Errorf("document %q: %w", name, err)
		}
		if doc.Headers.ContentType.Required == RequiredYes {
			if _, err := content.ParseType(doc.Headers.ContentType.Value); err != nil {
				return fmt.Errorf("document %q: %w", name, err)
			}
		}
		for field, fs := range doc.Metadata.fields() {
			if fs == nil {
				continue
			}
			switch fs.Required {
			case RequiredYes, RequiredOptional:
			case RequiredExcluded:
				if len(fs.Type) > 0 || fs.Multiple {
					return fmt.Errorf("document %q: excluded field %q must not carry 'type' or 'multiple'", name, field)
				}
			default:
				return fmt.Errorf("document %q: field %q: unknown required value %q", name, field, fs.Required)
			}
			for _, ref := range fs.Type {
				if _, ok := s.Docs[ref]; !ok {
					return fmt.Errorf("document %q: field %q references unknown document %q", name, field, ref)
				}
			}
		}
	}
	return nil
}

func (f FieldSpecs) fields() map[string]*FieldSpec {
	return map[string]*FieldSpec{
		metadata.KeyRef:           f.Ref,
		metadata.KeyTemplate:      f.Template,
		metadata.KeyReply:         f.Reply,
		metadata.KeySection:       f.Section,
		metadata.KeyCollaborators: f.Collaborators,
		metadata.KeyRevocations:   f.Revocations,
		metadata.KeyParameters:    f.Parameters,
		metadata.KeyChain:         f.Chain,
	}
}

// DocType parses the type identifier of one document definition.
func (d DocSpec) DocType() (metadata.DocType, error) {
	v, err := uuid.V4FromString(d.Type)
	if err != nil {
		return metadata.DocType{}, fmt.Errorf("parsing document type: %w", err)
	}
	return metadata.NewDocType(v)
}

// NewValidator translates the registry into a fully registered
// validator.
func NewValidator(spec *Spec) (*validator.Validator, error) {
	v := validator.New().Common(
		validator.ID(),
		validator.Ver(),
		validator.Type(),
		validator.Signatures(),
		validator.Ownership(),
	)
	for name, doc := range spec.Docs {
		dt, err := doc.DocType()
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", name, err)
		}
		rules, err := spec.rulesFor(name, doc)
		if err != nil {
			return nil, err
		}
		v.Register(dt, rules...)
	}
	return v, nil
}

func (s *Spec) rulesFor(name string, doc DocSpec) ([]validator.Rule, error) {
	var rules []validator.Rule

	ct := doc.Headers.ContentType
	switch ct.Required {
	case RequiredYes:
		parsed, err := content.ParseType(ct.Value)
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", name, err)
		}
		rules = append(rules, validator.ContentType(parsed))
	default:
		rules = append(rules, validator.ContentTypeNotSpecified())
	}

	enc := doc.Headers.ContentEncoding
	switch enc.Required {
	case RequiredYes, RequiredOptional:
		parsed, err := content.ParseEncoding(enc.Value)
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", name, err)
		}
		rules = append(rules, validator.ContentEncoding(enc.Required == RequiredOptional, parsed))
	default:
		rules = append(rules, validator.ContentEncodingNotSpecified())
	}

	refRules := []struct {
		fs        *FieldSpec
		specified func(validator.RefPolicy) validator.Rule
		absent    func() validator.Rule
	}{
		{doc.Metadata.Ref, validator.Ref, validator.RefNotSpecified},
		{doc.Metadata.Template, validator.Template, validator.TemplateNotSpecified},
		{doc.Metadata.Reply, validator.Reply, validator.ReplyNotSpecified},
		{doc.Metadata.Parameters, validator.Parameters, validator.ParametersNotSpecified},
	}
	for _, r := range refRules {
		if !specified(r.fs) {
			rules = append(rules, r.absent())
			continue
		}
		allowed, err := s.resolve(r.fs.Type)
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", name, err)
		}
		rules = append(rules, r.specified(validator.RefPolicy{
			Allowed:  allowed,
			Multiple: r.fs.Multiple,
			Optional: r.fs.Required == RequiredOptional,
		}))
	}

	rules = append(rules, presenceRule(doc.Metadata.Section, validator.Section, validator.SectionNotSpecified))
	rules = append(rules, presenceRule(doc.Metadata.Collaborators, validator.Collaborators, validator.CollaboratorsNotSpecified))
	rules = append(rules, presenceRule(doc.Metadata.Revocations, validator.RevocationsAllowed, validator.RevocationsNotSpecified))
	rules = append(rules, presenceRule(doc.Metadata.Chain, func(optional bool) validator.Rule {
		return validator.Chain(optional)
	}, validator.ChainNotSpecified))

	if doc.Signers.Admin {
		rules = append(rules, validator.SignerAdmin())
	} else if len(doc.Signers.Roles) > 0 {
		roles := make([]catid.RoleID, len(doc.Signers.Roles))
		for i, r := range doc.Signers.Roles {
			roles[i] = catid.RoleID(r)
		}
		rules = append(rules, validator.SignerRoles(roles...))
	}
	return rules, nil
}

func specified(fs *FieldSpec) bool {
	return fs != nil && fs.Required != RequiredExcluded
}

func presenceRule(fs *FieldSpec, build func(optional bool) validator.Rule, absent func() validator.Rule) validator.Rule {
	if !specified(fs) {
		return absent()
	}
	return build(fs.Required == RequiredOptional)
}

func (s *Spec) resolve(names DocNames) ([]metadata.DocType, error) {
	out := make([]metadata.DocType, 0, len(names))
	for _, name := range names {
		doc, ok := s.Docs[name]
		if !ok {
			return nil, fmt.Errorf("unknown document %q", name)
		}
		dt, err := doc.DocType()
		if err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, nil
}
