package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"

	"ideacapital/crypto"
	"ideacapital/observability/logging"
)

// CallerHeader names the caller when authentication is disabled. It is
// ignored once bearer tokens are enforced.
const CallerHeader = "X-Caller"

type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   string
	// AllowAnonymous lets requests without credentials through to read-only
	// routes; mutating routes still demand a caller.
	AllowAnonymous bool
	ClockSkew      time.Duration
}

type contextKey string

const contextKeyCaller contextKey = "gateway.caller"

// CallerFrom returns the authenticated caller stored on ctx.
func CallerFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(contextKeyCaller).(common.Address)
	return addr, ok
}

// WithCaller stores addr as the request's caller.
func WithCaller(ctx context.Context, addr common.Address) context.Context {
	return context.WithValue(ctx, contextKeyCaller, addr)
}

var errMissingSubject = errors.New("token subject is not an address")

// Authenticator resolves the caller of each request from an HMAC-signed JWT
// whose sub claim is the caller's address.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
	nowFn  func() time.Time
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		nowFn:  time.Now,
	}
}

// Middleware attaches the caller to the request context. Requests without a
// bearer token pass through anonymously when allowed; handlers that mutate
// state reject them via RequireCaller.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			if raw := r.Header.Get(CallerHeader); raw != "" {
				addr, err := crypto.ParseAddress(raw)
				if err != nil {
					http.Error(w, "invalid "+CallerHeader+" header", http.StatusBadRequest)
					return
				}
				r = r.WithContext(WithCaller(r.Context(), addr))
			}
			next.ServeHTTP(w, r)
			return
		}
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			if a.cfg.AllowAnonymous {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		caller, err := a.Authenticate(tokenString)
		if err != nil {
			a.logger.Debug("token rejected", "error", err, logging.MaskField("authorization", tokenString))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireCaller rejects requests that carry no caller.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFrom(r.Context()); !ok {
			http.Error(w, "caller identity required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate validates tokenString and returns its subject address.
func (a *Authenticator) Authenticate(tokenString string) (common.Address, error) {
	claims, err := a.parseToken(tokenString)
	if err != nil {
		return common.Address{}, err
	}
	if err := validateClaims(claims, a.cfg.Issuer, a.cfg.Audience); err != nil {
		return common.Address{}, err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return common.Address{}, errMissingSubject
	}
	addr, err := crypto.ParseAddress(sub)
	if err != nil {
		return common.Address{}, errMissingSubject
	}
	return addr, nil
}

// Issue signs a token for subject. The CLI uses it to mint development
// tokens with the daemon's secret.
func Issue(secret string, subject common.Address, issuer, audience string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("auth secret not configured")
	}
	claims := jwt.MapClaims{
		"sub": subject.Hex(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if audience != "" {
		claims["aud"] = audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(a.cfg.ClockSkew), jwt.WithTimeFunc(a.nowFn), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not map")
	}
	return claims, nil
}

func validateClaims(claims jwt.MapClaims, issuer, audience string) error {
	if issuer != "" {
		if value, ok := claims["iss"].(string); !ok || value != issuer {
			return errors.New("issuer mismatch")
		}
	}
	if audience != "" {
		switch val := claims["aud"].(type) {
		case string:
			if val != audience {
				return errors.New("audience mismatch")
			}
		case []interface{}:
			matched := false
			for _, entry := range val {
				if s, ok := entry.(string); ok && s == audience {
					matched = true
					break
				}
			}
			if !matched {
				return errors.New("audience mismatch")
			}
		default:
			return errors.New("audience missing")
		}
	}
	return nil
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
