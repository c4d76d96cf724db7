package msgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, graph http.HandlerFunc) (*Client, *int) {
	t.Helper()

	tokenCalls := new(int)
	mux := http.NewServeMux()
	mux.HandleFunc("/tid/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		*tokenCalls++
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %s", r.PostForm.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
	})
	mux.HandleFunc("/", graph)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		ClientID: "cid", ClientSecret: "cs", TenantID: "tid", UserEmail: "cal@biz.com",
		GraphBase: srv.URL, LoginBase: srv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, tokenCalls
}

func TestFreeSlotsParsesAvailabilityView(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/calendar/getSchedule") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("auth = %q", got)
		}
		// 09:00-17:00 is eight hourly intervals: free, busy, free, ...
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{{"availabilityView": "02020202"}},
		})
	})

	slots, err := c.FreeSlots(context.Background(), "2026-02-20", "UTC", "09:00", "17:00")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 4 {
		t.Fatalf("slots = %+v", slots)
	}
	if slots[0].Start != "2026-02-20T09:00:00Z" || slots[0].End != "2026-02-20T10:00:00Z" {
		t.Fatalf("first slot = %+v", slots[0])
	}
	if slots[1].Start != "2026-02-20T11:00:00Z" {
		t.Fatalf("second slot = %+v", slots[1])
	}
}

func TestTokenIsCached(t *testing.T) {
	t.Parallel()

	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{{"availabilityView": "0"}},
		})
	})

	ctx := context.Background()
	for range 3 {
		if _, err := c.FreeSlots(ctx, "2026-02-20", "UTC", "09:00", "17:00"); err != nil {
			t.Fatal(err)
		}
	}
	if *tokenCalls != 1 {
		t.Fatalf("token requests = %d, want 1", *tokenCalls)
	}
}

func TestReschedulePreservesDuration(t *testing.T) {
	t.Parallel()

	var patched map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"id":    "evt-1",
				"start": map[string]string{"dateTime": "2026-02-20T10:00:00"},
				"end":   map[string]string{"dateTime": "2026-02-20T10:30:00"},
			})
		case http.MethodPatch:
			if err := json.NewDecoder(r.Body).Decode(&patched); err != nil {
				t.Fatal(err)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id":    "evt-1",
				"start": map[string]string{"dateTime": "2026-03-01T14:00:00"},
				"end":   map[string]string{"dateTime": "2026-03-01T14:30:00"},
			})
		default:
			t.Errorf("unexpected %s", r.Method)
		}
	})

	event, err := c.RescheduleEvent(context.Background(), "evt-1", "2026-03-01T14:00:00Z", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if event.UID != "evt-1" {
		t.Fatalf("event = %+v", event)
	}

	end, _ := patched["end"].(map[string]any)
	if end["dateTime"] != "2026-03-01T14:30:00" {
		t.Fatalf("patched end = %+v, want 30-minute duration kept", patched)
	}
}
