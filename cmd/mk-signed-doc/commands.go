package main

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
)

func cmdBuild(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: build <doc.json> <output> <meta.json>")
	}
	docPath, outPath, metaPath := args[0], args[1], args[2]

	payload, err := os.ReadFile(docPath)
	if err != nil {
		return errors.Wrap(err, "reading payload")
	}
	metaJSON, err := os.ReadFile(metaPath)
	if err != nil {
		return errors.Wrap(err, "reading metadata")
	}

	doc, err := signeddoc.NewBuilder().
		WithJSONMetadata(metaJSON).
		WithContent(payload).
		Build()
	if err != nil {
		return errors.Wrap(err, "building document")
	}
	printReport(doc)

	if err := os.WriteFile(outPath, doc.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "writing document")
	}
	return nil
}

func cmdSign(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: sign <doc> <sk.pem> <kid-uri>")
	}
	docPath, keyPath, kidURI := args[0], args[1], args[2]

	raw, err := os.ReadFile(docPath)
	if err != nil {
		return errors.Wrap(err, "reading document")
	}
	doc, err := signeddoc.Decode(raw)
	if err != nil {
		return errors.Wrap(err, "decoding document")
	}

	priv, err := readPrivateKey(keyPath)
	if err != nil {
		return err
	}
	kid, err := catid.Parse(kidURI)
	if err != nil {
		return errors.Wrap(err, "parsing kid")
	}
	pub := priv.Public().(ed25519.PublicKey)
	if !pub.Equal(ed25519.PublicKey(kid.Role0Key())) {
		return fmt.Errorf("signing key does not match the kid's role-0 public key")
	}

	err = doc.AddSignature(func(tbs []byte) ([]byte, error) {
		return ed25519.Sign(priv, tbs), nil
	}, kid)
	if err != nil {
		return errors.Wrap(err, "signing document")
	}
	printReport(doc)

	if err := os.WriteFile(docPath, doc.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "writing document")
	}
	return nil
}

func cmdInspect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: inspect <doc>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "reading document")
	}
	return inspect(raw)
}

func cmdInspectBytes(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: inspect-bytes <hex>")
	}
	raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
	if err != nil {
		return errors.Wrap(err, "decoding hex")
	}
	return inspect(raw)
}

func inspect(raw []byte) error {
	doc, err := signeddoc.Decode(raw)
	if err != nil {
		return errors.Wrap(err, "decoding document")
	}

	meta := doc.Meta()
	if t, err := meta.DocType(); err == nil {
		fmt.Printf("type:             %s\n", t)
	}
	if id, err := meta.ID(); err == nil {
		fmt.Printf("id:               %s\n", id)
	}
	if ver, err := meta.Ver(); err == nil {
		fmt.Printf("ver:              %s\n", ver)
	}
	if ct, err := meta.ContentType(); err == nil {
		fmt.Printf("content-type:     %s\n", ct)
	}
	if enc, err := meta.ContentEncoding(); err == nil {
		fmt.Printf("content-encoding: %s\n", enc)
	}
	refFields := []struct {
		key string
		get func() (metadata.DocumentRefs, error)
	}{
		{metadata.KeyRef, meta.Ref},
		{metadata.KeyTemplate, meta.Template},
		{metadata.KeyReply, meta.Reply},
		{metadata.KeyParameters, meta.Parameters},
	}
	for _, f := range refFields {
		if refs, err := f.get(); err == nil {
			fmt.Printf("%-17s %s\n", f.key+":", refs)
		}
	}
	if doc.HasContent() {
		data, err := doc.DecodedContent()
		if err != nil {
			return errors.Wrap(err, "decoding content")
		}
		fmt.Printf("content:          %d bytes\n", len(data))
	} else {
		fmt.Println("content:          none")
	}
	for _, author := range doc.Authors() {
		fmt.Printf("author:           %s\n", author)
	}
	if doc.IsDeprecated() {
		fmt.Println("deprecated:       legacy reference encoding")
	}
	printReport(doc)
	return nil
}

func printReport(doc *signeddoc.Document) {
	if rep := doc.Report(); rep.IsProblematic() {
		fmt.Fprintln(os.Stderr, rep.String())
	}
}

func readPrivateKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading key")
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("reading key: no PEM block in %s", path)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parsing PKCS#8 key")
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parsing key: expected Ed25519, got %T", key)
	}
	return priv, nil
}
