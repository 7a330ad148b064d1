package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"ideacapital/cmd/internal/passphrase"
	"ideacapital/crypto"
)

const defaultPassEnv = "IDEACAPITAL_KEYSTORE_PASS"

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "wallet.keystore", "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	light := fs.Bool("light", false, "Use light scrypt parameters (tests and local development only)")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !*force {
		if _, err := os.Stat(*out); err == nil {
			fmt.Fprintf(stderr, "keystore %s already exists; pass --force to overwrite\n", *out)
			return 1
		} else if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "stat keystore: %v\n", err)
			return 1
		}
	}
	pass, err := passphrase.NewSource(*passEnv, "new keystore").Get()
	if err != nil {
		fmt.Fprintf(stderr, "passphrase: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "generate key: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(*out, key, pass, *light); err != nil {
		fmt.Fprintf(stderr, "write keystore: %v\n", err)
		return 1
	}
	addr := key.Address()
	fmt.Fprintf(stdout, "address: %s\nbech32:  %s\nkeystore: %s\n", addr.Hex(), crypto.Bech32(addr), *out)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("keystore", "wallet.keystore", "Path to the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pass, err := passphrase.NewSource(*passEnv, *path).Get()
	if err != nil {
		fmt.Fprintf(stderr, "passphrase: %v\n", err)
		return 1
	}
	key, err := crypto.LoadFromKeystore(*path, pass)
	if err != nil {
		fmt.Fprintf(stderr, "open keystore: %v\n", err)
		return 1
	}
	addr := key.Address()
	fmt.Fprintf(stdout, "%s %s\n", addr.Hex(), crypto.Bech32(addr))
	return 0
}
