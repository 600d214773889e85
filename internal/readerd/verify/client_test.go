package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/comm"
)

func TestVerifyApproved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/fare/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer reader-token" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req comm.VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.CardTag != "04A1B2C3" || req.Station != "baquedano" {
			t.Errorf("unexpected request %+v", req)
		}

		json.NewEncoder(w).Encode(comm.VerifyResponse{
			Status:     comm.DecisionOK,
			NewBalance: decimal.NewFromInt(30),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "reader-token", "baquedano", 2*time.Second)
	out, err := c.Verify(context.Background(), "04A1B2C3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != comm.DecisionOK || !out.NewBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestVerifyDenialIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(comm.VerifyResponse{
			Status:     comm.DecisionDenied,
			Message:    "insufficient balance",
			NewBalance: decimal.NewFromInt(10),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "reader-token", "baquedano", 2*time.Second)
	out, err := c.Verify(context.Background(), "04FFEE11")
	if err != nil {
		t.Fatalf("denial must not be a transport error: %v", err)
	}
	if out.Status != comm.DecisionDenied || out.Message != "insufficient balance" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestVerifyTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "reader-token", "baquedano", time.Second)
	if _, err := c.Verify(context.Background(), "04A1B2C3"); err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestVerifyGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "reader-token", "baquedano", time.Second)
	if _, err := c.Verify(context.Background(), "04A1B2C3"); err == nil {
		t.Fatal("expected a decode error")
	}
}
