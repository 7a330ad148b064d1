package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"ideacapital/crypto"
	"ideacapital/gateway/middleware"
)

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "Wallet address the token authenticates")
	secretEnv := fs.String("secret-env", "IDEACAPITAL_AUTH_HMAC_SECRET", "Environment variable holding the gateway HMAC secret")
	issuer := fs.String("issuer", "", "Issuer claim expected by the gateway")
	audience := fs.String("audience", "", "Audience claim expected by the gateway")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	addr, err := crypto.ParseAddress(*subject)
	if err != nil {
		fmt.Fprintf(stderr, "subject: %v\n", err)
		return 1
	}
	token, err := middleware.Issue(os.Getenv(*secretEnv), addr, *issuer, *audience, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "issue token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
