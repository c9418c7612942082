package validator

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/catalyst-forge/go-signed-doc/content"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
)

// ContentType checks that "content-type" is one of the allowed values
// and that the decoded content passes the shallow validity check for
// that type.
func ContentType(allowed ...content.Type) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		ct, err := doc.Meta().ContentType()
		if err != nil {
			doc.Report().MissingField("content-type", "metadata")
			return nil
		}
		if !typeIn(ct, allowed) {
			doc.Report().InvalidValue("content-type", ct.String(),
				"one of "+typeList(allowed), "metadata")
			return nil
		}
		if !doc.HasContent() {
			return nil
		}
		data, err := doc.DecodedContent()
		if err != nil {
			doc.Report().InvalidValue("payload", "", "decodable content", err.Error())
			return nil
		}
		ct.Validate(data, doc.Report())
		return nil
	})
}

// ContentTypeNotSpecified checks that "content-type" is absent.
func ContentTypeNotSpecified() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if ct, err := doc.Meta().ContentType(); err == nil {
			fieldAbsent(doc, "content-type", ct.String())
		}
		return nil
	})
}

// ContentEncoding checks "content-encoding" against the allowed
// values; when optional the field may be absent.
func ContentEncoding(optional bool, allowed ...content.Encoding) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		enc, err := doc.Meta().ContentEncoding()
		if err != nil {
			if !optional {
				doc.Report().MissingField("content-encoding", "metadata")
			}
			return nil
		}
		for _, a := range allowed {
			if enc == a {
				return nil
			}
		}
		doc.Report().InvalidValue("content-encoding", enc.String(),
			"one of "+encList(allowed), "metadata")
		return nil
	})
}

// ContentEncodingNotSpecified checks that "content-encoding" is
// absent.
func ContentEncodingNotSpecified() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if enc, err := doc.Meta().ContentEncoding(); err == nil {
			fieldAbsent(doc, "content-encoding", enc.String())
		}
		return nil
	})
}

// ContentSchema checks that the content is JSON valid against a
// compiled JSON Schema.
func ContentSchema(schema *jsonschema.Schema) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if !doc.HasContent() {
			doc.Report().MissingField("payload", "document content is required")
			return nil
		}
		data, err := doc.DecodedContent()
		if err != nil {
			doc.Report().InvalidValue("payload", "", "decodable content", err.Error())
			return nil
		}
		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			doc.Report().FunctionalValidation("content is not valid JSON: "+err.Error(), "payload")
			return nil
		}
		if err := schema.Validate(inst); err != nil {
			doc.Report().FunctionalValidation(err.Error(), "payload schema validation")
		}
		return nil
	})
}

// CompileSchema compiles raw JSON Schema bytes for use with
// ContentSchema.
func CompileSchema(data []byte) (*jsonschema.Schema, error) {
	raw, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", raw); err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return c.Compile("schema.json")
}

// ContentCDDL checks that content is present. Full CDDL validation is
// deferred; the definition travels with the template document.
func ContentCDDL() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if !doc.HasContent() {
			doc.Report().MissingField("payload", "document content is required")
		}
		return nil
	})
}

// ContentNil checks that the payload slot is null.
func ContentNil() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if doc.HasContent() {
			doc.Report().InvalidValue("payload", fmt.Sprintf("%d bytes", len(doc.ContentBytes())),
				"no content", "document")
		}
		return nil
	})
}

// ContentNotNil checks that the payload slot holds a byte string.
func ContentNotNil() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		if !doc.HasContent() {
			doc.Report().MissingField("payload", "document content is required")
		}
		return nil
	})
}

func typeIn(t content.Type, allowed []content.Type) bool {
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}

func typeList(ts []content.Type) string {
	ss := make([]string, len(ts))
	for i, t := range ts {
		ss[i] = t.String()
	}
	return strings.Join(ss, ", ")
}

func encList(es []content.Encoding) string {
	ss := make([]string, len(es))
	for i, e := range es {
		ss[i] = e.String()
	}
	return strings.Join(ss, ", ")
}
