package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
	"ideacapital/crypto"
	"ideacapital/crypto/merkle"
)

type merkleClaim struct {
	Account common.Address `json:"account"`
	Amount  string         `json:"amount"`
	Proof   []common.Hash  `json:"proof"`
}

type merkleOutput struct {
	Root   common.Hash   `json:"root"`
	Total  string        `json:"total"`
	Claims []merkleClaim `json:"claims"`
}

func runMerkle(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("merkle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("claims", "", "CSV file of account,amount rows (\"-\" reads stdin)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	var in io.Reader = os.Stdin
	if *path != "" && *path != "-" {
		f, err := os.Open(*path)
		if err != nil {
			fmt.Fprintf(stderr, "open claims: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}
	out, err := buildMerkle(in)
	if err != nil {
		fmt.Fprintf(stderr, "merkle: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}

// buildMerkle reads account,amount rows. A header row is skipped when its
// first cell is not an address.
func buildMerkle(in io.Reader) (*merkleOutput, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var claims []merkle.Claim
	line := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) < 2 {
			return nil, fmt.Errorf("line %d: want account,amount", line)
		}
		account, err := crypto.ParseAddress(row[0])
		if err != nil {
			if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "account") {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := types.ParseAmount(row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		claims = append(claims, merkle.Claim{Account: account, Amount: amount})
	}
	tree, err := merkle.Build(claims)
	if err != nil {
		return nil, err
	}
	out := &merkleOutput{Root: tree.Root(), Claims: make([]merkleClaim, 0, len(claims))}
	total := new(big.Int)
	for _, c := range claims {
		proof, _ := tree.ProofFor(c.Account, c.Amount)
		total.Add(total, c.Amount)
		out.Claims = append(out.Claims, merkleClaim{Account: c.Account, Amount: c.Amount.String(), Proof: proof})
	}
	out.Total = total.String()
	return out, nil
}
