package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ideacapital/observability/logging"
)

var testCaller = common.HexToAddress("0x2000000000000000000000000000000000000002")

func echoCaller() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(caller.Hex()))
	})
}

func TestAuthenticatorAcceptsSignedSubject(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "secret", Issuer: "ideacapital"}, nil)
	token, err := Issue("secret", testCaller, "ideacapital", "", time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/deployment", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	auth.Middleware(echoCaller()).ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, testCaller.Hex(), res.Body.String())
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "secret", Audience: "api"}, nil)
	now := time.Now()
	wrongSecret, err := Issue("other", testCaller, "", "api", time.Hour, now)
	require.NoError(t, err)
	expired, err := Issue("secret", testCaller, "", "api", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	wrongAudience, err := Issue("secret", testCaller, "", "web", time.Hour, now)
	require.NoError(t, err)

	for name, token := range map[string]string{"secret": wrongSecret, "expired": expired, "audience": wrongAudience, "garbage": "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res := httptest.NewRecorder()
		auth.Middleware(echoCaller()).ServeHTTP(res, req)
		require.Equal(t, http.StatusUnauthorized, res.Code, name)
	}

	res := httptest.NewRecorder()
	auth.Middleware(echoCaller()).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRejectedTokenIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Options{Service: "gateway", Level: "debug"})
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "secret"}, logger)
	leaked, err := Issue("other", testCaller, "", "", time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+leaked)
	res := httptest.NewRecorder()
	auth.Middleware(echoCaller()).ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Contains(t, buf.String(), "token rejected")
	require.Contains(t, buf.String(), logging.RedactedValue)
	require.NotContains(t, buf.String(), leaked)
}

func TestAuthenticatorAnonymousAndRequireCaller(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "secret", AllowAnonymous: true}, nil)
	res := httptest.NewRecorder()
	auth.Middleware(echoCaller()).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "anonymous", res.Body.String())

	res = httptest.NewRecorder()
	auth.Middleware(RequireCaller(echoCaller())).ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestCallerHeaderWhenAuthDisabled(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CallerHeader, testCaller.Hex())
	res := httptest.NewRecorder()
	auth.Middleware(echoCaller()).ServeHTTP(res, req)
	require.Equal(t, testCaller.Hex(), res.Body.String())

	req.Header.Set(CallerHeader, "nope")
	res = httptest.NewRecorder()
	auth.Middleware(echoCaller()).ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerSecond: 1, Burst: 1})
	handler := limiter.Middleware(echoCaller())

	req := httptest.NewRequest(http.MethodGet, "/v1/deployment", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusTooManyRequests, res.Code)

	other := httptest.NewRequest(http.MethodGet, "/v1/deployment", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.2, 10.0.0.1")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, other)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRateLimiterKeysByCaller(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerSecond: 1, Burst: 1})
	handler := limiter.Middleware(echoCaller())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first = first.WithContext(WithCaller(first.Context(), testCaller))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, first)
	require.Equal(t, http.StatusOK, res.Code)

	// Same IP, different caller.
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second = second.WithContext(WithCaller(second.Context(), common.Address{9}))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, second)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})(echoCaller())

	req := httptest.NewRequest(http.MethodOptions, "/v1/campaigns", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://app.example", res.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDAssignedAndPropagated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 36)
	require.Equal(t, seen, res.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-42")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, "client-42", seen)
}
