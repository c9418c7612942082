// mk-signed-doc builds, signs, and inspects Catalyst signed documents.
//
// Subcommands:
//
//	build <doc.json> <output> <meta.json>   encode an unsigned document
//	sign <doc> <sk.pem> <kid-uri>           append an Ed25519 signature
//	inspect <doc>                           dump header, authors, report
//	inspect-bytes <hex>                     same, document given as hex
//
// The problem report goes to stderr whenever it is non-empty; any
// failure exits 1.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("mk-signed-doc", pflag.ContinueOnError)
	flags.Usage = func() { printUsage(os.Stderr) }
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("a subcommand is required")
	}

	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "build":
		return cmdBuild(rest)
	case "sign":
		return cmdSign(rest)
	case "inspect":
		return cmdInspect(rest)
	case "inspect-bytes":
		return cmdInspectBytes(rest)
	case "help":
		printUsage(os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `usage: mk-signed-doc <subcommand> [args]

subcommands:
  build <doc.json> <output> <meta.json>   encode an unsigned document
  sign <doc> <sk.pem> <kid-uri>           append an Ed25519 signature
  inspect <doc>                           dump header, authors, report
  inspect-bytes <hex>                     same, document given as hex
`)
}
