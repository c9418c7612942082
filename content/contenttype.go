// Package content implements the payload side of a signed document:
// the content-type vocabulary, the content-encoding codec, and the
// shallow validity checks a content-type implies.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/core/report"
)

// Type is a document payload media type.
type Type string

const (
	TypeCBOR       Type = "application/cbor"
	TypeJSON       Type = "application/json"
	TypeSchemaJSON Type = "application/schema+json"
	TypeCDDL       Type = "application/cddl"

	TypeCSS                Type = "text/css; charset=utf-8"
	TypeCSSHandlebars      Type = "text/css; charset=utf-8; template=handlebars"
	TypeHTML               Type = "text/html; charset=utf-8"
	TypeHTMLHandlebars     Type = "text/html; charset=utf-8; template=handlebars"
	TypeMarkdown           Type = "text/markdown; charset=utf-8"
	TypeMarkdownHandlebars Type = "text/markdown; charset=utf-8; template=handlebars"
	TypePlain              Type = "text/plain; charset=utf-8"
	TypePlainHandlebars    Type = "text/plain; charset=utf-8; template=handlebars"
)

var knownTypes = map[Type]struct{}{
	TypeCBOR: {}, TypeJSON: {}, TypeSchemaJSON: {}, TypeCDDL: {},
	TypeCSS: {}, TypeCSSHandlebars: {},
	TypeHTML: {}, TypeHTMLHandlebars: {},
	TypeMarkdown: {}, TypeMarkdownHandlebars: {},
	TypePlain: {}, TypePlainHandlebars: {},
}

// ParseType validates a media-type string against the known set.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unsupported content type %q", s)
	}
	return t, nil
}

// IsValid reports whether t is one of the known media types.
func (t Type) IsValid() bool {
	_, ok := knownTypes[t]
	return ok
}

func (t Type) String() string { return string(t) }

// Validate performs the shallow validity check the type implies,
// recording findings. Types without a defined check pass.
func (t Type) Validate(data []byte, rep *report.Report) {
	switch t {
	case TypeCBOR:
		// The strict whole-value decoder also rejects duplicate map
		// keys and indefinite-length containers anywhere in the item.
		var v any
		if err := cbor.Unmarshal(data, &v); err != nil {
			rep.InvalidValue("payload", "", err.Error(), "content must be exactly one well-formed CBOR item")
		}
	case TypeJSON:
		if !json.Valid(data) {
			rep.InvalidValue("payload", "", "well-formed JSON", "content must be a JSON value")
		}
	case TypeSchemaJSON:
		if err := validateSchema(data); err != nil {
			rep.InvalidValue("payload", "", err.Error(), "content must be a JSON schema")
		}
	}
	// cddl, css, html, markdown, plain and the handlebars variants are
	// not deeply validated yet.
}

func validateSchema(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	if _, err := c.Compile("schema.json"); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	return nil
}
