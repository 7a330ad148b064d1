// Command ideacapital-cli is the operator toolbox: wallet keys, development
// API tokens and offline Merkle roots for dividend rounds.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "merkle":
		return runMerkle(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ideacapital-cli <command> [flags]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen   --out <keystore>          Generate a wallet key into an encrypted keystore")
	fmt.Fprintln(w, "  address  --keystore <path>         Print the wallet address of a keystore")
	fmt.Fprintln(w, "  token    --subject <addr>          Issue a gateway bearer token signed with the HMAC secret")
	fmt.Fprintln(w, "  merkle   --claims <file.csv>       Compute a dividend root and proofs from account,amount rows")
}
