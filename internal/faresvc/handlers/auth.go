package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"

	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/faresvc/service"
)

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Name == "" || req.Email == "" || req.Password == "" {
		h.CreateResponse(w, Response{Message: "name, email and password are required", Code: http.StatusBadRequest})
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		h.CreateResponse(w, Response{Message: "invalid email format", Code: http.StatusBadRequest})
		return
	}
	if len(req.Password) < 6 {
		h.CreateResponse(w, Response{Message: "password must be at least 6 characters", Code: http.StatusBadRequest})
		return
	}

	user, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Phone, req.Password)
	if errors.Is(err, service.ErrEmailTaken) {
		h.CreateResponse(w, Response{Message: "user already exists", Code: http.StatusConflict})
		return
	}
	if err != nil {
		log.Errorf("register user error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{Message: "user created", Code: http.StatusCreated, Data: user})
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		h.CreateResponse(w, Response{Message: "email and password are required", Code: http.StatusBadRequest})
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.CreateResponse(w, Response{Message: "invalid email or password", Code: http.StatusUnauthorized})
		return
	}
	if err != nil {
		log.Errorf("login error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	token, err := h.issueToken(user.UserId)
	if err != nil {
		log.Errorf("issue token error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{
		Message: "login ok",
		Code:    http.StatusOK,
		Data: map[string]interface{}{
			"token": token,
			"user":  user,
		},
	})
}
