package sandbox

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func setupTestEcho() (*echo.Echo, *BundleHandler) {
	e := echo.New()
	h := NewBundleHandler(zerolog.Nop(), 0, 50)
	h.now = func() time.Time { return time.Unix(0, 1234) }
	h.RegisterRoutes(e.Group("/api"))
	return e, h
}

func post(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBundleHandler_Generate(t *testing.T) {
	e, _ := setupTestEcho()

	rec := post(e, `{"donors":3,"biobanks":2,"collections":2,"seed":42}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/fhir+json" {
		t.Fatalf("expected application/fhir+json, got %q", ct)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if mustString(doc, "resourceType") != "Bundle" || mustString(doc, "type") != "transaction" {
		t.Fatalf("expected transaction Bundle, got %v/%v", doc["resourceType"], doc["type"])
	}

	want := encode(t, mustGenerate(t, Params{Donors: 3, Biobanks: 2, Collections: 2, Seed: 42}))
	if !bytes.Equal(rec.Body.Bytes(), want) {
		t.Fatal("expected the HTTP body to match the library output for the same seed")
	}
}

func TestBundleHandler_DefaultsAndClockSeed(t *testing.T) {
	e, _ := setupTestEcho()

	rec := post(e, `{"donors":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := encode(t, mustGenerate(t, Params{Donors: 2, Biobanks: 1, Collections: 1, Seed: 1234}))
	if !bytes.Equal(rec.Body.Bytes(), want) {
		t.Fatal("expected 1 biobank, 1 collection and the clock seed")
	}
}

func TestBundleHandler_InvalidCount(t *testing.T) {
	e, _ := setupTestEcho()

	rec := post(e, `{"donors":0,"seed":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var oo map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &oo); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if mustString(oo, "resourceType") != "OperationOutcome" {
		t.Fatalf("expected OperationOutcome, got %v", oo["resourceType"])
	}
	issue := mustMap(mustSlice(oo, "issue")[0])
	if mustString(issue, "code") != "value" {
		t.Fatalf("expected issue code value, got %v", issue["code"])
	}
}

func TestBundleHandler_MalformedBody(t *testing.T) {
	e, _ := setupTestEcho()

	rec := post(e, `{"donors":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBundleHandler_CountCap(t *testing.T) {
	e, _ := setupTestEcho()

	for _, body := range []string{
		`{"donors":200000,"seed":1}`,
		`{"donors":1,"biobanks":51,"seed":1}`,
		`{"donors":1,"collections":51,"seed":1}`,
	} {
		rec := post(e, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
		var oo map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &oo); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if mustString(oo, "resourceType") != "OperationOutcome" {
			t.Fatalf("expected OperationOutcome, got %v", oo["resourceType"])
		}
		if !strings.Contains(rec.Body.String(), "exceeds the maximum of 50") {
			t.Errorf("expected the cap in the diagnostics, got %s", rec.Body.String())
		}
	}

	if rec := post(e, `{"donors":50,"seed":1}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 at the cap, got %d", rec.Code)
	}
}

func TestNewBundleHandler_DefaultMaxCount(t *testing.T) {
	if h := NewBundleHandler(zerolog.Nop(), 0, 0); h.maxCount != DefaultMaxCount {
		t.Fatalf("expected %d, got %d", DefaultMaxCount, h.maxCount)
	}
}
