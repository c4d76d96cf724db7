package calcom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", EventTypeID: 42})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFreeSlots(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/slots/available" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("apiKey") != "test-key" {
			t.Error("missing apiKey auth parameter")
		}
		if q.Get("eventTypeId") != "42" {
			t.Errorf("eventTypeId = %s", q.Get("eventTypeId"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"slots": map[string]any{
				"2026-02-20": []map[string]string{
					{"time": "2026-02-20T10:00:00Z"},
					{"time": "2026-02-20T10:30:00Z"},
				},
			},
		})
	}))

	slots, err := c.FreeSlots(context.Background(), "2026-02-20", "UTC", "09:00", "17:00")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Fatalf("slots = %+v", slots)
	}
	if slots[0].Start != "2026-02-20T10:00:00Z" || slots[0].End != "2026-02-20T10:30:00Z" {
		t.Fatalf("slot = %+v", slots[0])
	}
}

func TestCreateEvent(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bookings" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		responses, _ := body["responses"].(map[string]any)
		if responses["email"] != "a@x.com" {
			t.Errorf("responses = %+v", responses)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"uid":       "abc123",
			"id":        7,
			"title":     "Consult",
			"startTime": "2026-02-20T10:00:00Z",
			"endTime":   "2026-02-20T10:30:00Z",
		})
	}))

	event, err := c.CreateEvent(context.Background(), contractx.CreateEventRequest{
		Start: "2026-02-20T10:00:00Z", Name: "Ada", Email: "a@x.com",
		Title: "Consult", Timezone: "UTC",
	})
	if err != nil {
		t.Fatal(err)
	}
	if event.UID != "abc123" || event.ID != 7 {
		t.Fatalf("event = %+v", event)
	}
}

func TestEventsForAttendeeFiltersByEmail(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"bookings": []map[string]any{
				{
					"uid": "mine", "id": 1, "title": "Consult",
					"attendees": []map[string]string{{"name": "Ada", "email": "A@X.com"}},
				},
				{
					"uid": "theirs", "id": 2, "title": "Other",
					"attendees": []map[string]string{{"name": "Bob", "email": "b@x.com"}},
				},
			},
		})
	}))

	events, err := c.EventsForAttendee(context.Background(), "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].UID != "mine" {
		t.Fatalf("events = %+v", events)
	}
}

func TestCancelEventFallsBackToPost(t *testing.T) {
	t.Parallel()

	var deleteTried, postTried bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/bookings":
			json.NewEncoder(w).Encode(map[string]any{
				"bookings": []map[string]any{{"uid": "abc123", "id": 7}},
			})
		case r.Method == http.MethodDelete:
			deleteTried = true
			http.Error(w, "nope", http.StatusMethodNotAllowed)
		case r.Method == http.MethodPost && r.URL.Path == "/bookings/cancel":
			postTried = true
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	if err := c.CancelEvent(context.Background(), "abc123", "test"); err != nil {
		t.Fatal(err)
	}
	if !deleteTried || !postTried {
		t.Fatalf("deleteTried=%v postTried=%v", deleteTried, postTried)
	}
}

func TestRescheduleFallsBackToCancelRecreate(t *testing.T) {
	t.Parallel()

	var canceled, recreated bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/bookings":
			json.NewEncoder(w).Encode(map[string]any{
				"bookings": []map[string]any{{
					"uid": "abc123", "id": 7, "title": "Consult",
					"attendees": []map[string]string{{"name": "Ada", "email": "a@x.com", "timeZone": "UTC"}},
				}},
			})
		case r.Method == http.MethodPatch:
			http.Error(w, "not supported", http.StatusBadRequest)
		case r.Method == http.MethodDelete:
			canceled = true
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/bookings":
			recreated = true
			json.NewEncoder(w).Encode(map[string]any{
				"uid": "def456", "id": 8, "startTime": "2026-03-01T10:00:00Z",
			})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))

	event, err := c.RescheduleEvent(context.Background(), "abc123", "2026-03-01T10:00:00Z", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if !canceled || !recreated {
		t.Fatalf("canceled=%v recreated=%v", canceled, recreated)
	}
	if event.UID != "def456" {
		t.Fatalf("event = %+v", event)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{EventTypeID: 1}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewClient(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing event type id")
	}
}
