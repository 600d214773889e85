package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/metroapp/fare-services/configs"

	"github.com/metroapp/fare-services/internal/comm"
	"github.com/metroapp/fare-services/internal/readerd/debounce"
	"github.com/metroapp/fare-services/internal/readerd/gate"
	"github.com/metroapp/fare-services/internal/readerd/nfc"
	"github.com/metroapp/fare-services/internal/readerd/verify"
)

const SERVICE_NAME = "reader"

func init() {
	instanceId := "001"
	config.Logging(SERVICE_NAME + "_daemon_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	station := os.Getenv("STATION_ID")
	if station == "" {
		log.Fatal("STATION_ID is required")
	}

	fareURL := os.Getenv("FARE_SERVICE_URL")
	if fareURL == "" {
		log.Fatal("FARE_SERVICE_URL is required")
	}

	gateURL := os.Getenv("GATE_WS_URL")
	if gateURL == "" {
		log.Fatal("GATE_WS_URL is required")
	}

	token := os.Getenv("READER_TOKEN")
	if token == "" {
		log.Fatal("READER_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// NFC device prints one uid per line; "-" reads stdin for bench setups
	var device io.Reader = os.Stdin
	if path := os.Getenv("NFC_DEVICE"); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("unable to open nfc device %s: %v", path, err)
		}
		defer f.Close()
		device = f
	}

	signaler := gate.NewSignaler(gateURL, func(state gate.ConnState) {
		log.Infof("gate channel state: %s", state)
	})
	go signaler.Run(ctx)

	client := verify.NewClient(fareURL, token, station, 10*time.Second)
	machine := debounce.NewMachine(client, signaler)
	machine.SetOnOutcome(func(tag string, out comm.VerifyResponse) {
		log.Infof("display: %s %s %s", tag, out.Status, out.NewBalance.String())
	})

	tags := make(chan string, 16)
	source := nfc.NewSource(device)
	go func() {
		if err := source.Run(ctx, tags); err != nil && ctx.Err() == nil {
			log.Errorf("nfc source stopped: %v", err)
		}
		close(tags)
	}()

	log.Infof("%s daemon running for station %s", SERVICE_NAME, station)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for {
		select {
		case tag, ok := <-tags:
			if !ok {
				log.Infof("nfc source closed, shutting down")
				return
			}
			machine.HandleTag(tag)
		case <-stop:
			cancel()
			log.Infof("%s daemon gracefully stopped", SERVICE_NAME)
			return
		}
	}
}
