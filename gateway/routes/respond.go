package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"ideacapital/core"
	protoerrors "ideacapital/core/errors"
	"ideacapital/core/types"
	"ideacapital/crypto"
	"ideacapital/gateway/middleware"
	"ideacapital/services/distribution"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	RequestID string `json:"requestId,omitempty"`
}

// badRequest marks input that failed to decode before reaching the protocol.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	if len(args) == 0 {
		return badRequest{msg: format}
	}
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, kind := classify(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "request_id", middleware.RequestIDFrom(r.Context()), "error", err)
	}
	writeJSON(w, status, errorBody{
		Error:     err.Error(),
		Code:      code,
		Kind:      kind,
		RequestID: middleware.RequestIDFrom(r.Context()),
	})
}

func classify(err error) (int, string, string) {
	var bad badRequest
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "BadRequest", protoerrors.KindValidation.String()
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable, "Unavailable", protoerrors.KindUnknown.String()
	case errors.Is(err, core.ErrNotBootstrapped):
		return http.StatusServiceUnavailable, "NotBootstrapped", protoerrors.KindStateConflict.String()
	case errors.Is(err, distribution.ErrPlanNotFound):
		return http.StatusNotFound, "PlanNotFound", protoerrors.KindNotFound.String()
	case errors.Is(err, distribution.ErrAlreadyFunded):
		return http.StatusConflict, "PlanAlreadyFunded", protoerrors.KindStateConflict.String()
	case errors.Is(err, distribution.ErrNoHolders):
		return http.StatusConflict, "NoHolders", protoerrors.KindStateConflict.String()
	}
	kind := protoerrors.KindOf(err)
	return protoerrors.HTTPStatus(err), protoerrors.CodeOf(err), kind.String()
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("request body required")
		}
		return invalid("decode body: %v", err)
	}
	return nil
}

// caller returns the identity established by the auth middleware. Routes
// that need one are mounted behind RequireCaller.
func caller(r *http.Request) common.Address {
	addr, _ := middleware.CallerFrom(r.Context())
	return addr
}

func pathAddress(r *http.Request, name string) (common.Address, error) {
	return parseAddress(chi.URLParam(r, name), name)
}

func parseAddress(raw, field string) (common.Address, error) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, invalid("%s: %v", field, err)
	}
	return addr, nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, invalid("%s must be an unsigned integer", name)
	}
	return v, nil
}

func parseAmount(raw, field string) (*big.Int, error) {
	v, err := types.ParseAmount(raw)
	if err != nil {
		return nil, invalid("%s: %v", field, err)
	}
	return v, nil
}

// optionalAmount parses raw unless it is blank.
func optionalAmount(raw, field string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return parseAmount(raw, field)
}

func amount(v *big.Int) string { return types.FormatAmount(v) }
