package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"intentsettle/native/bank"
	nativecommon "intentsettle/native/common"
	"intentsettle/native/governance"
	"intentsettle/native/intent"
	"intentsettle/native/reserve"
	"intentsettle/native/settlement"
	"intentsettle/native/vault"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorMapping struct {
	target error
	code   string
	status int
}

// Order matters: the breaker outranks everything else.
var errorMappings = []errorMapping{
	{nativecommon.ErrSystemPaused, "SystemPaused", http.StatusServiceUnavailable},
	{intent.ErrExpired, "Expired", http.StatusUnprocessableEntity},
	{intent.ErrReplayOrOutOfOrder, "ReplayOrOutOfOrder", http.StatusConflict},
	{intent.ErrVenueMismatch, "VenueMismatch", http.StatusUnprocessableEntity},
	{intent.ErrBadSignature, "BadSignature", http.StatusUnprocessableEntity},
	{intent.ErrInvalidIntent, "InvalidIntent", http.StatusBadRequest},
	{settlement.ErrSlippageExceeded, "SlippageExceeded", http.StatusUnprocessableEntity},
	{settlement.ErrInvalidDeltaDirection, "InvalidDeltaDirection", http.StatusUnprocessableEntity},
	{settlement.ErrSwapParamsMismatch, "SwapParamsMismatch", http.StatusUnprocessableEntity},
	{settlement.ErrUnknownSession, "UnknownSession", http.StatusNotFound},
	{governance.ErrUnauthorized, "Unauthorized", http.StatusForbidden},
	{governance.ErrNotMatured, "NotMatured", http.StatusConflict},
	{governance.ErrNoPendingChange, "NoPendingChange", http.StatusConflict},
	{governance.ErrRateTooHigh, "RateTooHigh", http.StatusBadRequest},
	{governance.ErrInvalidAddress, "InvalidAddress", http.StatusBadRequest},
	{governance.ErrTooManyGuardians, "TooManyGuardians", http.StatusConflict},
	{governance.ErrNotInitialised, "NotInitialised", http.StatusServiceUnavailable},
	{vault.ErrNothingToClaim, "NothingToClaim", http.StatusConflict},
	{reserve.ErrInsufficientReserve, "InsufficientReserve", http.StatusConflict},
	{reserve.ErrInvalidAmount, "InvalidAmount", http.StatusBadRequest},
	{bank.ErrInsufficientBalance, "InsufficientFunds", http.StatusUnprocessableEntity},
	{bank.ErrInsufficientAllowance, "InsufficientFunds", http.StatusUnprocessableEntity},
	{bank.ErrPermitExpired, "PermitRejected", http.StatusUnprocessableEntity},
	{bank.ErrPermitSignature, "PermitRejected", http.StatusUnprocessableEntity},
	{bank.ErrInvalidAmount, "InvalidAmount", http.StatusBadRequest},
	{bank.ErrInvalidRecipient, "InvalidAddress", http.StatusBadRequest},
	{errUnauthenticated, "Unauthenticated", http.StatusUnauthorized},
	{errBadRequest, "BadRequest", http.StatusBadRequest},
}

// classify maps err onto a stable code and HTTP status.
func classify(err error) (string, int) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			return mapping.code, mapping.status
		}
	}
	return "Internal", http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"route", r.URL.Path,
			"error", err)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
