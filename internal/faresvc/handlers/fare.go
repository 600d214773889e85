package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/comm"
	"github.com/metroapp/fare-services/internal/faresvc/service"
	"github.com/metroapp/fare-services/internal/faresvc/store"
)

// VerifyHandler runs the verify-and-debit protocol for one tap. The reader
// gets exactly one authoritative response per request; denials keep the
// balance claim the ledger reported so the gate can display it.
func (h *Handler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, comm.VerifyResponse{
			Status:  comm.DecisionDenied,
			Message: "unauthorized",
		})
		return
	}

	var req comm.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardTag == "" {
		h.writeJSON(w, http.StatusBadRequest, comm.VerifyResponse{
			Status:  comm.DecisionDenied,
			Message: "cardTag is required",
		})
		return
	}

	out, err := h.fareService.Verify(r.Context(), userID, req.CardTag, req.Station)
	if err != nil {
		log.Errorf("verify error for tag %s: %v", req.CardTag, err)
		h.writeJSON(w, http.StatusInternalServerError, comm.VerifyResponse{
			Status:     comm.DecisionDenied,
			Message:    "internal error",
			NewBalance: decimal.Zero,
		})
		return
	}

	if h.events != nil {
		h.events.PublishFareEvent(req.Station, service.NormalizeTag(req.CardTag), out)
	}

	h.writeJSON(w, verifyStatusCode(out), out)
}

func verifyStatusCode(out comm.VerifyResponse) int {
	if out.Status == comm.DecisionOK {
		return http.StatusOK
	}
	if out.Message == service.ReasonCardNotFound {
		return http.StatusNotFound
	}
	return http.StatusForbidden
}

func (h *Handler) TopUpHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, comm.TopUpResponse{
			Status:  comm.DecisionDenied,
			Message: "unauthorized",
		})
		return
	}

	var req comm.TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardTag == "" {
		h.writeJSON(w, http.StatusBadRequest, comm.TopUpResponse{
			Status:  comm.DecisionDenied,
			Message: "cardTag and amount are required",
		})
		return
	}

	newBalance, err := h.fareService.TopUp(r.Context(), userID, req.CardTag, req.Amount)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidAmount):
		h.writeJSON(w, http.StatusBadRequest, comm.TopUpResponse{
			Status:  comm.DecisionDenied,
			Message: "amount must be positive",
		})
		return
	case errors.Is(err, store.ErrCardNotFound):
		h.writeJSON(w, http.StatusNotFound, comm.TopUpResponse{
			Status:  comm.DecisionDenied,
			Message: "card not found",
		})
		return
	default:
		log.Errorf("topup error for tag %s: %v", req.CardTag, err)
		h.writeJSON(w, http.StatusInternalServerError, comm.TopUpResponse{
			Status:  comm.DecisionDenied,
			Message: "internal error",
		})
		return
	}

	h.notifier.SendNotification(fmt.Sprintf(
		"💳 *TOP-UP*\n\n👤 *User ID:* %d\n💵 *Amount:* %s\n📊 *New balance:* %s",
		userID, req.Amount.String(), newBalance.String(),
	))

	h.writeJSON(w, http.StatusOK, comm.TopUpResponse{
		Status:     comm.DecisionOK,
		Message:    "top-up applied",
		NewBalance: newBalance,
	})
}
