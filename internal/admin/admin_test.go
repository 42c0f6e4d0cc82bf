package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/filterlang/filterlang"
	"github.com/filterlang/filterlang/internal/store"
)

func seedData(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	fields := []store.Field{
		{Name: "ip.src", Type: filterlang.TypeIP},
		{Name: "tcp.port", Type: filterlang.TypeUnsigned},
	}
	if _, err := s.CreateScheme(ctx, "packets", fields); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CompileFilter(ctx, "packets", "tcp.port == 443"); err != nil {
		t.Fatal(err)
	}
}

func TestReset(t *testing.T) {
	s := store.NewMemoryStore()
	seedData(t, s)

	handler := NewHandler(s)

	// Verify state has data.
	state := s.State()
	if state["schemes"].(int) != 1 {
		t.Fatal("expected 1 scheme before reset")
	}

	// POST /admin/reset
	req := httptest.NewRequest("POST", "/admin/reset", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("got status %d, want 204", w.Code)
	}

	// Verify data is gone.
	state = s.State()
	if state["schemes"].(int) != 0 {
		t.Error("expected 0 schemes after reset")
	}
	if state["filters"].(int) != 0 {
		t.Error("expected 0 filters after reset")
	}
}

func TestState(t *testing.T) {
	s := store.NewMemoryStore()
	seedData(t, s)

	handler := NewHandler(s)

	req := httptest.NewRequest("GET", "/admin/state", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var state map[string]int
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state["schemes"] != 1 {
		t.Errorf("got %d schemes, want 1", state["schemes"])
	}
	if state["filters"] != 1 {
		t.Errorf("got %d filters, want 1", state["filters"])
	}
}
