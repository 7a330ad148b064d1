package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Service: "ideacapitald", Env: "test", Level: "debug"})
	logger.Debug("operation committed", "operation", "crowdsale.invest", MaskField("hmac_secret", "abc"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "operation committed", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "ideacapitald", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "crowdsale.invest", line["operation"])
	require.Equal(t, RedactedValue, line["hmac_secret"])
	require.Contains(t, line, "timestamp")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSecretKeysAreRedactedByTheHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Service: "ideacapitald", Level: "info"})
	logger.Info("gateway listening",
		"auth_secret", "hunter2",
		"archive_dsn", "postgres://u:p@db/archive",
		"payment_token", "0xabc",
		"operation", "token.mint")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, RedactedValue, line["auth_secret"])
	require.Equal(t, RedactedValue, line["archive_dsn"])
	require.Equal(t, "0xabc", line["payment_token"])
	require.Equal(t, "token.mint", line["operation"])
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("authorization", "Bearer x").Value.String())
	require.Equal(t, "", MaskField("authorization", " ").Value.String())
	require.True(t, IsSecretKey("HMAC_Secret"))
	require.False(t, IsSecretKey("royalty_token"))
}

func TestMaskDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://archive:s3cret@db:5432/ideacapital?sslmode=disable": "postgres://archive:" + RedactedValue + "@db:5432/ideacapital?sslmode=disable",
		"host=db user=archive password=s3cret dbname=ideacapital":       "host=db user=archive password=" + RedactedValue + " dbname=ideacapital",
		"postgres://db/ideacapital":                                     "postgres://db/ideacapital",
		"":                                                              "",
	}
	for in, want := range cases {
		got := MaskDSN("dsn", in).Value.String()
		require.NotContains(t, got, "s3cret")
		require.Equal(t, want, got, in)
	}
}
