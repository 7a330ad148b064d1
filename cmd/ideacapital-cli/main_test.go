package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ideacapital/crypto/merkle"
	"ideacapital/gateway/middleware"
)

func TestMerkleCommandProducesVerifiableProofs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.csv")
	csv := "account,amount\n" +
		"0x2000000000000000000000000000000000000002,700000000\n" +
		"0x3000000000000000000000000000000000000003,300000000\n" +
		"0x4000000000000000000000000000000000000004,5\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"merkle", "--claims", path}, &stdout, &stderr), stderr.String())

	var out merkleOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Equal(t, "1000000005", out.Total)
	require.Len(t, out.Claims, 3)
	for _, c := range out.Claims {
		amount, ok := new(big.Int).SetString(c.Amount, 10)
		require.True(t, ok)
		leaf, err := merkle.LeafHash(c.Account, amount)
		require.NoError(t, err)
		require.True(t, merkle.Verify(c.Proof, out.Root, leaf))
	}
}

func TestMerkleCommandRejectsBadRows(t *testing.T) {
	_, err := buildMerkle(strings.NewReader("0x2000000000000000000000000000000000000002,abc\n"))
	require.Error(t, err)
	_, err = buildMerkle(strings.NewReader("nope,1\n0x2000000000000000000000000000000000000002,1\n"))
	require.Error(t, err)
	_, err = buildMerkle(strings.NewReader(""))
	require.Error(t, err)
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("TEST_GATEWAY_SECRET", "s3cret")
	subject := common.HexToAddress("0x2000000000000000000000000000000000000002")
	var stdout, stderr bytes.Buffer
	code := run([]string{"token", "--subject", subject.Hex(), "--secret-env", "TEST_GATEWAY_SECRET", "--ttl", "5m"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	auth := middleware.NewAuthenticator(middleware.AuthConfig{Enabled: true, HMACSecret: "s3cret", ClockSkew: time.Minute}, nil)
	got, err := auth.Authenticate(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	require.Equal(t, subject, got)
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("TEST_GATEWAY_SECRET", "")
	var stdout, stderr bytes.Buffer
	code := run([]string{"token", "--subject", "0x2000000000000000000000000000000000000002", "--secret-env", "TEST_GATEWAY_SECRET"}, &stdout, &stderr)
	require.Equal(t, 1, code)
}

func TestKeygenThenAddress(t *testing.T) {
	t.Setenv(defaultPassEnv, "correct horse")
	path := filepath.Join(t.TempDir(), "wallet.keystore")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"keygen", "--out", path, "--light"}, &stdout, &stderr), stderr.String())
	require.FileExists(t, path)
	first := stdout.String()

	stdout.Reset()
	require.Equal(t, 1, run([]string{"keygen", "--out", path, "--light"}, &stdout, &stderr))

	stdout.Reset()
	require.Equal(t, 0, run([]string{"address", "--keystore", path}, &stdout, &stderr), stderr.String())
	addr := strings.Fields(stdout.String())[0]
	require.Contains(t, first, addr)
}

func TestUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"frobnicate"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "unknown command")
}
