package nutrition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smoothie-orders/internal/config"
)

func newTestClient(url string, timeout time.Duration) Client {
	return NewClient(&config.Config{NutritionAPIURL: url, NutritionTimeout: timeout})
}

func TestLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/api/fruit/banana":
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{"name": "Banana", "family": "Musaceae", "nutritions": {"calories": 96, "sugar": 17.2}}`)
		case "/api/fruit/dragon%20fruit":
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[{"name": "Dragonfruit", "calories": 60}, {"name": "ignored"}]`)
		case "/api/fruit/empty":
			fmt.Fprintln(w, `[]`)
		case "/api/fruit/scalar":
			fmt.Fprintln(w, `"just a string"`)
		case "/api/fruit/teapot":
			w.WriteHeader(http.StatusTeapot)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"error": "Not found"}`)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2*time.Second)
	ctx := context.Background()

	t.Run("Object", func(t *testing.T) {
		facts, err := client.Lookup(ctx, "banana")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if facts.Key != "banana" {
			t.Errorf("Expected key 'banana', got '%s'", facts.Key)
		}
		if got := facts.Value("nutritions.calories"); got != "96" {
			t.Errorf("Expected nutritions.calories '96', got '%s'", got)
		}
		if facts.Rows[0].Field != "name" {
			t.Errorf("Expected document order, first field was '%s'", facts.Rows[0].Field)
		}
	})

	t.Run("ArrayFirstElement", func(t *testing.T) {
		facts, err := client.Lookup(ctx, "dragon fruit")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got := facts.Value("name"); got != "Dragonfruit" {
			t.Errorf("Expected first element to be used, got name '%s'", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := client.Lookup(ctx, "ximenia")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("EmptyKey", func(t *testing.T) {
		_, err := client.Lookup(ctx, "  ")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UnexpectedShape", func(t *testing.T) {
		for _, key := range []string{"empty", "scalar"} {
			_, err := client.Lookup(ctx, key)
			if !errors.Is(err, ErrUnexpectedShape) {
				t.Errorf("%s: expected ErrUnexpectedShape, got %v", key, err)
			}
		}
	})

	t.Run("OtherStatus", func(t *testing.T) {
		_, err := client.Lookup(ctx, "teapot")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("Expected StatusError, got %v", err)
		}
		if statusErr.Code != http.StatusTeapot {
			t.Errorf("Expected status 418, got %d", statusErr.Code)
		}
	})
}

func TestLookupTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(server.URL, 50*time.Millisecond)
	if _, err := client.Lookup(context.Background(), "slow"); err == nil {
		t.Fatal("Expected a timeout error, got nil")
	}
}

func TestParseFactsRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseFacts([]byte("{not json")); !errors.Is(err, ErrUnexpectedShape) {
		t.Fatalf("Expected ErrUnexpectedShape, got %v", err)
	}
}
