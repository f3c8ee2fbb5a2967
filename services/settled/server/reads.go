package server

import (
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"intentsettle/services/settled/archive"
)

func (s *Server) pathAddress(r *http.Request, param string) (common.Address, error) {
	return parseAddressField(param, chi.URLParam(r, param))
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	trader, err := s.pathAddress(r, "trader")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	nonce, err := s.engine.Nonce(trader)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trader": trader.Hex(), "nonce": nonce})
}

type assetAmount struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func sortedAmounts(balances map[common.Address]*big.Int) []assetAmount {
	out := make([]assetAmount, 0, len(balances))
	for asset, amount := range balances {
		out = append(out, assetAmount{Asset: asset.Hex(), Amount: amount.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	trader, err := s.pathAddress(r, "trader")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balances, err := s.vault.Balances(trader)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trader": trader.Hex(), "rewards": sortedAmounts(balances)})
}

func (s *Server) handleReward(w http.ResponseWriter, r *http.Request) {
	trader, err := s.pathAddress(r, "trader")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := s.pathAddress(r, "asset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := s.vault.Balance(trader, asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assetAmount{Asset: asset.Hex(), Amount: amount.String()})
}

func (s *Server) handleReserves(w http.ResponseWriter, r *http.Request) {
	balances, err := s.reserve.Balances()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reserves": sortedAmounts(balances)})
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	asset, err := s.pathAddress(r, "asset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := s.reserve.Balance(asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assetAmount{Asset: asset.Hex(), Amount: amount.String()})
}

func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.governance.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type domainResponse struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           string `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
	Separator         string `json:"separator"`
}

func (s *Server) handleDomain(w http.ResponseWriter, r *http.Request) {
	domain := s.engine.Domain()
	separator, err := domain.Separator()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domainResponse{
		Name:              domain.Name,
		Version:           domain.Version,
		ChainID:           domain.ChainID.String(),
		VerifyingContract: domain.VerifyingContract.Hex(),
		Separator:         separator.Hex(),
	})
}

type archivedEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Trader     string            `json:"trader,omitempty"`
	Digest     string            `json:"digest,omitempty"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// handleEvents serves the durable archive when one is configured and the
// in-memory stream history otherwise.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if s.archive == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": s.stream.History(query.Get("cursor"))})
		return
	}
	filter := archive.Filter{
		Type:   strings.TrimSpace(query.Get("type")),
		Trader: strings.TrimSpace(query.Get("trader")),
		Digest: strings.TrimSpace(query.Get("digest")),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("before")); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: before must be RFC3339", errBadRequest))
			return
		}
		filter.Before = before
	}
	records, err := s.archive.Query(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]archivedEvent, 0, len(records))
	for _, record := range records {
		attrs, err := record.Decoded()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, archivedEvent{
			ID:         record.ID.String(),
			Type:       record.Type,
			Trader:     record.Trader,
			Digest:     record.Digest,
			Attributes: attrs,
			CreatedAt:  record.CreatedAt.UTC(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": out})
}

