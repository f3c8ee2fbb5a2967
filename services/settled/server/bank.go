package server

import (
	"fmt"
	"net/http"
)

type mintRequest struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type approveRequest struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type tokenAmount struct {
	Token  string `json:"token"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

// handleMint issues ledger tokens. Owner only.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := parseAddressField("token", req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseAddressField("to", req.To)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parsePositiveInt("amount", req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	auth, err := s.authorize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.Issue(r.Context(), auth, token, to, amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.ledger.BalanceOf(token, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenAmount{Token: token.Hex(), Holder: to.Hex(), Amount: balance.String()})
}

// handleApprove sets the custody allowance on the caller's own balance. A
// zero amount revokes it.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: caller missing", errUnauthenticated))
		return
	}
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := parseAddressField("token", req.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseSignedInt("amount", req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.Approve(r.Context(), token, caller, s.ledger.Custody(), amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenAmount{Token: token.Hex(), Holder: caller.Hex(), Amount: amount.String()})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	token, err := s.pathAddress(r, "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	holder, err := s.pathAddress(r, "holder")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.ledger.BalanceOf(token, holder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenAmount{Token: token.Hex(), Holder: holder.Hex(), Amount: balance.String()})
}

// handleAllowance reports what owner has approved custody to pull.
func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	token, err := s.pathAddress(r, "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	owner, err := s.pathAddress(r, "owner")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	allowance, err := s.ledger.Allowance(token, owner, s.ledger.Custody())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenAmount{Token: token.Hex(), Holder: owner.Hex(), Amount: allowance.String()})
}
