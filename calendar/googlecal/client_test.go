package googlecal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{CalendarID: "primary", AccessToken: "tok", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFreeSlotsDropsBusyHours(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/freeBusy" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"calendars": map[string]any{
				"primary": map[string]any{
					"busy": []map[string]string{
						{"start": "2026-02-20T10:00:00Z", "end": "2026-02-20T11:00:00Z"},
						// Partial overlap still blocks the whole slot.
						{"start": "2026-02-20T13:30:00Z", "end": "2026-02-20T14:15:00Z"},
					},
				},
			},
		})
	})

	slots, err := c.FreeSlots(context.Background(), "2026-02-20", "UTC", "09:00", "17:00")
	if err != nil {
		t.Fatal(err)
	}

	starts := make(map[string]bool, len(slots))
	for _, s := range slots {
		starts[s.Start] = true
	}
	for _, blocked := range []string{"2026-02-20T10:00:00Z", "2026-02-20T13:00:00Z", "2026-02-20T14:00:00Z"} {
		if starts[blocked] {
			t.Errorf("busy hour %s offered as free", blocked)
		}
	}
	for _, free := range []string{"2026-02-20T09:00:00Z", "2026-02-20T11:00:00Z", "2026-02-20T16:00:00Z"} {
		if !starts[free] {
			t.Errorf("free hour %s missing", free)
		}
	}
	if len(slots) != 5 {
		t.Fatalf("slots = %+v", slots)
	}
}

func TestEventsForAttendeeSkipsCancelled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id": "live", "summary": "Consult", "status": "confirmed",
					"attendees": []map[string]string{{"email": "a@x.com", "displayName": "Ada"}},
				},
				{
					"id": "gone", "summary": "Old", "status": "cancelled",
					"attendees": []map[string]string{{"email": "a@x.com"}},
				},
			},
		})
	})

	events, err := c.EventsForAttendee(context.Background(), "A@X.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].UID != "live" {
		t.Fatalf("events = %+v", events)
	}
}

func TestReschedulePreservesDuration(t *testing.T) {
	t.Parallel()

	var patched map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"id":    "evt-1",
				"start": map[string]string{"dateTime": "2026-02-20T10:00:00Z"},
				"end":   map[string]string{"dateTime": "2026-02-20T10:45:00Z"},
			})
		case http.MethodPatch:
			if err := json.NewDecoder(r.Body).Decode(&patched); err != nil {
				t.Fatal(err)
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "evt-1"})
		default:
			t.Errorf("unexpected %s", r.Method)
		}
	})

	if _, err := c.RescheduleEvent(context.Background(), "evt-1", "2026-03-01T14:00:00Z", "UTC"); err != nil {
		t.Fatal(err)
	}
	end, _ := patched["end"].(map[string]any)
	if end["dateTime"] != "2026-03-01T14:45:00Z" {
		t.Fatalf("patched = %+v, want 45-minute duration kept", patched)
	}
}
