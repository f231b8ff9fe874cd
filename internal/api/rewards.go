package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/greencred/greencred/internal/domain"
)

// ─── Rewards & Login API ────────────────────────────────────────────────────
//
// GET  /api/rewards?category=      — catalog with redeemed/affordable flags
// POST /api/rewards/{id}/redeem    — spend tokens
// POST /api/login                  — demo login gate
// POST /api/logout

type rewardView struct {
	domain.Reward
	Redeemed   bool `json:"redeemed"`
	Affordable bool `json:"affordable"`
}

// handleListRewards returns the reward catalog for the current balance.
func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	category := r.URL.Query().Get("category")

	rewards := s.catalog.RewardsIn(category)
	out := make([]rewardView, len(rewards))
	for i, rw := range rewards {
		redeemed := snap.HasRedeemed(rw.ID)
		out[i] = rewardView{
			Reward:     rw,
			Redeemed:   redeemed,
			Affordable: !redeemed && snap.TotalTokens >= rw.Cost,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":    snap.TotalTokens,
		"categories": s.catalog.RewardCategories(),
		"rewards":    out,
	})
}

// handleRedeem redeems a catalog reward at its listed cost.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.RedeemCatalogReward(r.Context(), id); err != nil {
		if s.recorder != nil {
			s.recorder.RedemptionRejected(redeemReason(err))
		}
		writeDomainError(w, err)
		return
	}
	rw, _ := s.catalog.Reward(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reward":  rw,
		"balance": s.ledger.Balance(),
	})
}

func redeemReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrUnknownReward):
		return "unknown_reward"
	}
	return "other"
}

// handleLogin runs the login gate.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sess, err := s.gate.Login(body.Email, body.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("login", "session_id", sess.ID, "demo", sess.Demo)
	writeJSON(w, http.StatusOK, sess)
}

// handleLogout drops the bearer session, if any.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != "" {
		s.gate.Logout(token)
	}
	w.WriteHeader(http.StatusNoContent)
}
