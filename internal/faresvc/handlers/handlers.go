package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"

	"github.com/metroapp/fare-services/internal/comm"
	"github.com/metroapp/fare-services/internal/faresvc/notify"
	"github.com/metroapp/fare-services/internal/faresvc/service"
)

// FareEventPublisher pushes a completed verification outcome towards the
// gate gateway. Satisfied by broker.Broker.
type FareEventPublisher interface {
	PublishFareEvent(station, tag string, out comm.VerifyResponse)
}

type Handler struct {
	tokenAuth   *jwtauth.JWTAuth
	fareService *service.FareService
	cardService *service.CardService
	userService *service.UserService
	events      FareEventPublisher
	notifier    *notify.TelegramNotifier
}

func NewHandler(fareService *service.FareService, cardService *service.CardService,
	userService *service.UserService, events FareEventPublisher, notifier *notify.TelegramNotifier) *Handler {
	return &Handler{
		fareService: fareService,
		cardService: cardService,
		userService: userService,
		events:      events,
		notifier:    notifier,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "fare service is running at port " + os.Getenv("FARE_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}

func (h *Handler) issueToken(userID int64) (string, error) {
	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"exp":     expirationTime,
	})
	return tokenString, err
}

// userID resolves the authenticated user from the verified JWT claims.
func (h *Handler) userID(r *http.Request) (int64, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return 0, err
	}

	raw, ok := claims["user_id"]
	if !ok {
		return 0, errors.New("user_id claim missing")
	}

	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, errors.New("user_id claim has unexpected type")
	}
}
