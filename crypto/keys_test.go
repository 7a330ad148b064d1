package crypto

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestParseAddressAcceptsHexAndBech32(t *testing.T) {
	want := common.HexToAddress("0x2000000000000000000000000000000000000002")

	got, err := ParseAddress("0x2000000000000000000000000000000000000002")
	require.NoError(t, err)
	require.Equal(t, want, got)

	encoded := Bech32(want)
	require.Contains(t, encoded, "ic1")
	got, err = ParseAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestParseAddressRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "0x1234", "nothex", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"} {
		_, err := ParseAddress(raw)
		require.ErrorIs(t, err, ErrInvalidAddress, raw)
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "keys", "operator.json")
	require.NoError(t, SaveToKeystore(path, key, "s3cret", true))

	loaded, err := LoadFromKeystore(path, "s3cret")
	require.NoError(t, err)
	require.Equal(t, key.Address(), loaded.Address())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
