package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/common"
)

// Handler exposes the admin login endpoint.
type Handler struct {
	Service *Service
	Logger  zerolog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	session, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if common.IsAppError(err) {
			h.Logger.Warn().Str("username", req.Username).Str("ip", common.ClientIP(r)).Msg("admin_login_rejected")
			common.WriteError(w, err)
			return
		}
		h.Logger.Error().Err(err).Msg("admin_login_failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	h.Logger.Info().Str("username", session.Username).Msg("admin_login")
	common.JSON(w, http.StatusOK, map[string]any{"data": session})
}
