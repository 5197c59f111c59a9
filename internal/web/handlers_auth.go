package web

import (
	"net/http"

	"github.com/JonMunkholm/pokecatalog/internal/web/middleware"
)

type obtainTokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	Refresh string `json:"refresh"`
}

// handleWhoAmI echoes the principal established by the route's auth
// middleware.
func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	writeJSON(w, map[string]any{
		"message":   "Authenticated",
		"principal": p,
	})
}

func (s *Server) handleObtainToken(w http.ResponseWriter, r *http.Request) {
	var req obtainTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	user, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}

	pair, err := s.auth.IssueToken(user)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, pair)
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	access, err := s.auth.Refresh(req.Refresh)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"access": access})
}
