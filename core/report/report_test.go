package report_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/core/report"
)

func TestReport(t *testing.T) {
	t.Run("empty report is not problematic", func(t *testing.T) {
		r := report.New("decoding document")
		require.False(t, r.IsProblematic())
		require.Empty(t, r.Entries())
	})

	t.Run("entries preserve insertion order", func(t *testing.T) {
		r := report.New("decoding document")
		r.MissingField("id", "metadata")
		r.UnknownField("foo", "42", "metadata")
		r.FunctionalValidation("ver precedes id", "")

		require.True(t, r.IsProblematic())
		entries := r.Entries()
		require.Len(t, entries, 3)
		require.Equal(t, report.MissingField, entries[0].Kind)
		require.Equal(t, report.UnknownField, entries[1].Kind)
		require.Equal(t, report.FunctionalValidation, entries[2].Kind)
	})

	t.Run("entry context is prefixed with report context", func(t *testing.T) {
		r := report.New("proposal")
		r.InvalidValue("ver", "x", "must be UUIDv7", "metadata")
		require.Equal(t, "proposal, metadata", r.Entries()[0].Context)
	})
}
