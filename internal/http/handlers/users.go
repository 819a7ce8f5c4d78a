package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"portraitbot/internal/domain"
)

type userResponse struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	HasModel bool   `json:"has_model"`
}

// GetUser reports a user's lifecycle status. References are not exposed.
func (a *App) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := a.Users.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		a.Logger.Error().Err(err).Int64("user_id", id).Msg("load user")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.json(w, http.StatusOK, userResponse{ID: user.ID, Status: string(user.Status), HasModel: user.HasModel()})
}
