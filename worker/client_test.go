package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amonks/rail/train"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, ClientOptions{Timeout: 2 * time.Second})
}

func TestSearchSendsWireFields(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Errorf("expected request id header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"trainNo":"301","trainType":"SRT","depTime":"060000","arrTime":"083000","isAvailable":true,"generalSeatAvailable":true,"fare":59800,"runDate":"20261015","trainId":"srt-301"},{"trainNo":"303","trainType":"SRT","depTime":"063000"}]`))
	})

	origin, destination := train.DefaultRoute(train.ModeSRT)
	candidates, err := client.Search(context.Background(), train.SearchCriteria{
		Mode:        train.ModeSRT,
		Origin:      origin,
		Destination: destination,
		Date:        "20261015",
		Time:        "0600",
		AccountID:   2,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(candidates) != 2 || candidates[0].TrainNo != "301" || candidates[1].TrainNo != "303" {
		t.Fatalf("expected candidates in worker order, got %+v", candidates)
	}
	if candidates[0].Fare != 59800 || candidates[0].TrainID != "srt-301" {
		t.Fatalf("unexpected candidate %+v", candidates[0])
	}

	want := map[string]any{
		"accountId":      float64(2),
		"trainMode":      "SRT",
		"depStationName": "수서",
		"arrStationName": "부산",
		"date":           "20261015",
		"timeFrom":       "060000",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("expected %s=%v, got %v", key, value, got[key])
		}
	}
}

func TestSearchEmptyResultIsNotNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	candidates, err := client.Search(context.Background(), train.SearchCriteria{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if candidates == nil || len(candidates) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", candidates)
	}
}

func TestReserveAcceptsCreated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body train.Reservation
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.SelectedTrainNo != "101" {
			t.Errorf("expected selected train 101, got %q", body.SelectedTrainNo)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Reservation task created successfully","taskId":42}`))
	})
	id, err := client.Reserve(context.Background(), train.Reservation{SelectedTrainNo: "101"})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected task 42, got %d", id)
	}
}

func TestFetchStatusNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Task not found"}`))
	})
	_, err := client.FetchStatus(context.Background(), 9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var backendErr *BackendError
	if !errors.As(err, &backendErr) || backendErr.Message != "Task not found" {
		t.Fatalf("expected backend error with detail, got %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatal("did not expect a 404 to look like a transport failure")
	}
}

func TestFetchStatusDecodesSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":5,"status":"RUNNING","isActive":true,"depStation":"서울","arrStation":"부산","selectedTrainType":"KTX","selectedDepTime":"060000","logs":[{"level":"INFO","message":"retrying","createdAt":"2026-10-15 06:00:01"}]}`))
	})
	task, err := client.FetchStatus(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if task.ID != 5 || task.Status != train.StatusRunning || !task.IsActive || len(task.Logs) != 1 {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestErrorMessageSources(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "message", body: `{"message":"Failed to search trains"}`, want: "Failed to search trains"},
		{name: "detail string", body: `{"detail":"Account not found."}`, want: "Account not found."},
		{name: "detail structured", body: `{"detail":[{"loc":["body","date"],"msg":"field required"}]}`, want: `[{"loc":["body","date"],"msg":"field required"}]`},
		{name: "empty body", body: ``, want: "500 Internal Server Error"},
		{name: "plain text", body: "upstream exploded", want: "upstream exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.ListAccounts(context.Background())
			message, fromWorker := Message(err)
			if !fromWorker {
				t.Fatalf("expected backend error, got %v", err)
			}
			if message != tc.want {
				t.Fatalf("expected message %q, got %q", tc.want, message)
			}
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, ClientOptions{Timeout: time.Second})
	_, err := client.FetchStatus(context.Background(), 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) || !strings.Contains(transportErr.Op, "/tasks/1") {
		t.Fatalf("expected transport error naming the request, got %v", err)
	}
	if _, fromWorker := Message(err); fromWorker {
		t.Fatal("did not expect transport failure to carry a worker message")
	}
}

func TestRequestCancelReturnsMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks/3/cancel" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"message":"Task 3 is not active and cannot be cancelled."}`))
	})
	message, err := client.RequestCancel(context.Background(), 3)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(message, "not active") {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestCreateAccountSendsPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Password != "secret" || body.Type != train.ModeKTX {
			t.Errorf("unexpected body %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":4,"type":"KTX","username":"rider"}`))
	})
	created, err := client.CreateAccount(context.Background(), train.Account{Type: train.ModeKTX, Username: "rider", Password: "secret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 4 || created.Password != "" {
		t.Fatalf("unexpected account %+v", created)
	}
}

func TestContextCancellationIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.FetchStatus(ctx, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected timeout to count as unavailable, got %v", err)
	}
}
