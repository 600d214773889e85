package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/faresvc/service"
	"github.com/metroapp/fare-services/internal/faresvc/store"
)

func (h *Handler) RegisterCardHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized})
		return
	}

	var req struct {
		Tag     string          `json:"tag"`
		Alias   string          `json:"alias"`
		Balance decimal.Decimal `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tag == "" || req.Alias == "" {
		h.CreateResponse(w, Response{Message: "tag and alias are required", Code: http.StatusBadRequest})
		return
	}

	card, err := h.cardService.Register(r.Context(), userID, req.Tag, req.Alias, req.Balance)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateTag):
		h.CreateResponse(w, Response{Message: "card already registered by this user", Code: http.StatusConflict})
		return
	case errors.Is(err, store.ErrTagOwnedByOther):
		h.CreateResponse(w, Response{Message: "card already registered by another user", Code: http.StatusForbidden})
		return
	case errors.Is(err, service.ErrInvalidTag), errors.Is(err, service.ErrInvalidAmount):
		h.CreateResponse(w, Response{Message: err.Error(), Code: http.StatusBadRequest})
		return
	default:
		log.Errorf("register card error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{Message: "card registered", Code: http.StatusCreated, Data: card})
}

func (h *Handler) ListCardsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized})
		return
	}

	cards, err := h.cardService.List(r.Context(), userID)
	if err != nil {
		log.Errorf("list cards error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{Message: "cards", Code: http.StatusOK, Data: cards})
}

func (h *Handler) UpdateAliasHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized})
		return
	}

	var req struct {
		Tag   string `json:"tag"`
		Alias string `json:"alias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tag == "" || req.Alias == "" {
		h.CreateResponse(w, Response{Message: "tag and alias are required", Code: http.StatusBadRequest})
		return
	}

	err = h.cardService.UpdateAlias(r.Context(), userID, req.Tag, req.Alias)
	if errors.Is(err, store.ErrCardNotFound) {
		h.CreateResponse(w, Response{Message: "card not found", Code: http.StatusNotFound})
		return
	}
	if err != nil {
		log.Errorf("update alias error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{Message: "card updated", Code: http.StatusOK})
}

func (h *Handler) DeleteCardHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized})
		return
	}

	tag := chi.URLParam(r, "tag")
	if tag == "" {
		h.CreateResponse(w, Response{Message: "tag is required", Code: http.StatusBadRequest})
		return
	}

	err = h.cardService.Delete(r.Context(), userID, tag)
	if errors.Is(err, store.ErrCardNotFound) {
		h.CreateResponse(w, Response{Message: "card not found", Code: http.StatusNotFound})
		return
	}
	if err != nil {
		log.Errorf("delete card error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{Message: "card deleted", Code: http.StatusOK})
}

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized})
		return
	}

	txs, err := h.cardService.Transactions(r.Context(), userID)
	if err != nil {
		log.Errorf("list transactions error: %v", err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{Message: "transactions", Code: http.StatusOK, Data: txs})
}
