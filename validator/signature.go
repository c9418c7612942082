package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
)

// Signatures checks that the document carries at least one signature
// and that every signature verifies against the key the provider has
// registered for its kid.
func Signatures() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		sigs := doc.Signatures()
		if len(sigs) == 0 {
			doc.Report().Other("document has no signatures", "signatures")
			return nil
		}
		for i, sig := range sigs {
			location := fmt.Sprintf("signature %d", i)
			pub, err := p.GetRegisteredKey(ctx, sig.KID())
			if provider.IsNotFound(err) {
				doc.Report().FunctionalValidation(
					fmt.Sprintf("no registered key for %s", sig.KID().ShortID()), location)
				continue
			}
			if err != nil {
				return err
			}
			if !doc.VerifySignature(i, pub) {
				doc.Report().FunctionalValidation("signature verification failed", location)
			}
		}
		return nil
	})
}

// SignerRoles checks that the role carried by every signature's kid
// lies in the allowed set.
func SignerRoles(allowed ...catid.RoleID) Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		for i, kid := range doc.Authors() {
			role, _ := kid.RoleAndRotation()
			ok := false
			for _, a := range allowed {
				if role == a {
					ok = true
					break
				}
			}
			if !ok {
				doc.Report().InvalidValue("kid", kid.String(),
					"signer role in "+roleList(allowed), fmt.Sprintf("signature %d", i))
			}
		}
		return nil
	})
}

// SignerAdmin checks that every signature's kid is an admin ID.
func SignerAdmin() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		for i, kid := range doc.Authors() {
			if !kid.IsAdmin() {
				doc.Report().InvalidValue("kid", kid.String(),
					"an admin Catalyst ID", fmt.Sprintf("signature %d", i))
			}
		}
		return nil
	})
}

// Ownership checks version authorship: the first version of a
// document has exactly one author, and any later version is signed
// only by the original author or by collaborators named in the latest
// known version.
func Ownership() Rule {
	return RuleFunc(func(ctx context.Context, doc *signeddoc.Document, p provider.Provider) error {
		id, idErr := doc.ID()
		ver, verErr := doc.Ver()
		if idErr != nil || verErr != nil {
			return nil // the id and ver rules report these
		}
		authors := doc.Authors()

		if ver.Compare(id) == 0 {
			if len(authors) != 1 {
				doc.Report().FunctionalValidation(
					fmt.Sprintf("first version must have exactly one author, got %d", len(authors)),
					"signatures")
			}
			return nil
		}

		first, err := p.GetFirstDoc(ctx, id)
		if provider.IsNotFound(err) {
			doc.Report().FunctionalValidation(
				fmt.Sprintf("no known first version of document %s", id), "signatures")
			return nil
		}
		if err != nil {
			return err
		}
		last, err := p.GetLastDoc(ctx, id)
		if err != nil && !provider.IsNotFound(err) {
			return err
		}
		if last == nil {
			last = first
		}

		permitted := map[string]bool{}
		for _, a := range first.Authors() {
			permitted[a.ShortID().String()] = true
		}
		if collaborators, err := last.Meta().Collaborators(); err == nil {
			for _, c := range collaborators {
				permitted[c.ShortID().String()] = true
			}
		}
		for _, a := range authors {
			if !permitted[a.ShortID().String()] {
				doc.Report().FunctionalValidation(
					fmt.Sprintf("%s is neither the original author nor a collaborator", a.ShortID()),
					"signatures")
			}
		}
		return nil
	})
}

func roleList(roles []catid.RoleID) string {
	ss := make([]string, len(roles))
	for i, r := range roles {
		ss[i] = r.String()
	}
	return "{" + strings.Join(ss, ", ") + "}"
}
