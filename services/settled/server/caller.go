package server

import (
	"fmt"
	"net/http"
	"time"

	"intentsettle/native/governance"
)

// authorize resolves the authenticated caller into a governance capability.
func (s *Server) authorize(r *http.Request) (governance.Capability, error) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		return governance.Capability{}, fmt.Errorf("%w: caller missing", errUnauthenticated)
	}
	return s.governance.Authorize(caller)
}

type claimRequest struct {
	Asset string `json:"asset"`
}

type claimResponse struct {
	Trader string `json:"trader"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// handleClaim pays the caller's accrued reward in one asset. Any address may
// claim its own balance; no role is involved.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: caller missing", errUnauthenticated))
		return
	}
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := parseAddressField("asset", req.Asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := s.vault.Claim(r.Context(), caller, asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Trader: caller.Hex(), Asset: asset.Hex(), Amount: amount.String()})
}

type proposeRateRequest struct {
	RewardBps uint32 `json:"rewardBps"`
}

type proposeRateResponse struct {
	Current   uint32    `json:"current"`
	Proposed  uint32    `json:"proposed"`
	MaturesAt time.Time `json:"maturesAt"`
}

func (s *Server) handleProposeRate(w http.ResponseWriter, r *http.Request) {
	var req proposeRateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	auth, err := s.authorize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pending, err := s.governance.ProposeRewardRate(auth, req.RewardBps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposeRateResponse{
		Current:   pending.Current,
		Proposed:  pending.Proposed,
		MaturesAt: pending.MaturesAt.UTC(),
	})
}

func (s *Server) handleApplyRate(w http.ResponseWriter, r *http.Request) {
	auth, err := s.authorize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bps, err := s.governance.ApplyRewardRate(auth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"rewardBps": bps})
}

type guardianRequest struct {
	Guardian string `json:"guardian"`
	Enabled  bool   `json:"enabled"`
}

func (s *Server) handleSetGuardian(w http.ResponseWriter, r *http.Request) {
	var req guardianRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	guardian, err := parseAddressField("guardian", req.Guardian)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	auth, err := s.authorize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.governance.SetGuardian(auth, guardian, req.Enabled); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"guardian": guardian.Hex(), "enabled": req.Enabled})
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	auth, err := s.authorize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.governance.Pause(auth, req.Paused); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

type ownerRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	owner, err := parseAddressField("owner", req.Owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	auth, err := s.authorize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.governance.TransferOwnership(auth, owner); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": owner.Hex()})
}

type withdrawRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type withdrawResponse struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Remaining string `json:"remaining"`
	Recipient string `json:"recipient"`
}

func (s *Server) handleWithdrawReserve(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := parseAddressField("asset", req.Asset)
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
	remaining, err := s.reserve.Withdraw(r.Context(), auth, asset, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{
		Asset:     asset.Hex(),
		Amount:    amount.String(),
		Remaining: remaining.String(),
		Recipient: auth.Caller().Hex(),
	})
}
