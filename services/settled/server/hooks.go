package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func (s *Server) handleBeforeSwap(w http.ResponseWriter, r *http.Request) {
	var req hookRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sender, params, data, err := req.decode()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	selector, err := s.engine.BeforeSwap(r.Context(), sender, req.Venue, params, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hookResponse{Selector: selector.String()})
}

func (s *Server) handleAfterSwap(w http.ResponseWriter, r *http.Request) {
	var req hookRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sender, params, data, err := req.decode()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	delta, err := req.Delta.decode()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	selector, receipt, err := s.engine.AfterSwap(r.Context(), sender, req.Venue, params, delta, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hookResponse{Selector: selector.String(), Receipt: receiptToJSON(receipt)})
}

type abortRequest struct {
	Digest string `json:"digest"`
	Reason string `json:"reason"`
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	var req abortRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	digest := strings.TrimSpace(req.Digest)
	if len(strings.TrimPrefix(digest, "0x")) != 2*common.HashLength {
		s.writeError(w, r, fmt.Errorf("%w: digest must be a 32-byte hex hash", errBadRequest))
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "host_abort"
	}
	if err := s.engine.Abort(common.HexToHash(digest), reason); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "aborted"})
}
