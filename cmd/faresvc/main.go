package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	config "github.com/metroapp/fare-services/configs"
	"github.com/metroapp/fare-services/internal/faresvc/broker"
	"github.com/metroapp/fare-services/internal/faresvc/db"
	handlers "github.com/metroapp/fare-services/internal/faresvc/handlers"
	"github.com/metroapp/fare-services/internal/faresvc/notify"
	"github.com/metroapp/fare-services/internal/faresvc/service"
	"github.com/metroapp/fare-services/internal/faresvc/store"
	nats "github.com/metroapp/fare-services/internal/nats"
)

const SERVICE_NAME = "fare"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// fare cost is server-authoritative, never client-supplied
	fareCost, err := decimal.NewFromString(os.Getenv("FARE_COST"))
	if err != nil || !fareCost.IsPositive() {
		log.Fatalf("Invalid FARE_COST value: %v", os.Getenv("FARE_COST"))
	}

	userStore := store.NewUserStore(dbpool)
	userService := service.NewUserService(userStore)

	cardStore := store.NewCardStore(dbpool)
	transactionStore := store.NewTransactionStore(dbpool)
	cardService := service.NewCardService(cardStore, transactionStore)

	fareService := service.NewFareService(cardStore, fareCost)

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// fare events flow to the gate gateway through NATS
	b := broker.NewBroker(n.Conn)

	notifier := notify.NewFromEnv()

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(fareService, cardService, userService, b, notifier)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("FARE_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
