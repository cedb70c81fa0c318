package handler

import (
	"net/http"
)

// GetActiveTournament returns the running tournament
func (h *Handler) GetActiveTournament(w http.ResponseWriter, r *http.Request) {
	t, err := h.tournaments.ActiveTournament(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to get active tournament")
		return
	}
	h.writeSuccess(w, t)
}

// RotateTournament closes the active tournament and opens the next one
func (h *Handler) RotateTournament(w http.ResponseWriter, r *http.Request) {
	var err error
	if h.rotation != nil {
		err = h.rotation.RunOnce(r.Context())
	} else {
		_, err = h.tournaments.Rotate(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, err, "failed to rotate tournament")
		return
	}

	t, err := h.tournaments.ActiveTournament(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "failed to get active tournament")
		return
	}
	h.writeSuccess(w, t)
}

// JoinTournament enters a user into the active tournament
func (h *Handler) JoinTournament(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	lb, err := h.tournaments.Join(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err, "failed to join tournament", "user_id", userID)
		return
	}
	h.writeSuccess(w, lb)
}

// GetRank returns a user's rank inside their group
func (h *Handler) GetRank(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	rank, err := h.tournaments.Rank(r.Context(), tournamentID, userID)
	if err != nil {
		h.writeDomainError(w, err, "failed to get rank", "tournament_id", tournamentID, "user_id", userID)
		return
	}
	h.writeSuccess(w, rank)
}

// GetGroupLeaderboard returns a group's participations in rank order
func (h *Handler) GetGroupLeaderboard(w http.ResponseWriter, r *http.Request) {
	groupID, err := idParam(r, "groupID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	lb, err := h.tournaments.GroupLeaderboard(r.Context(), groupID)
	if err != nil {
		h.writeDomainError(w, err, "failed to get group leaderboard", "group_id", groupID)
		return
	}
	h.writeSuccess(w, lb)
}

// ClaimReward pays out the reward of a finished tournament
func (h *Handler) ClaimReward(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.tournaments.ClaimReward(r.Context(), tournamentID, userID)
	if err != nil {
		h.writeDomainError(w, err, "failed to claim reward", "tournament_id", tournamentID, "user_id", userID)
		return
	}
	h.writeSuccess(w, user)
}
