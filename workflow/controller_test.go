package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/monitor"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/worker"
)

type fakeBackend struct {
	mu sync.Mutex

	candidates  []train.Candidate
	searchErr   error
	searches    []train.SearchCriteria
	reserveID   train.TaskID
	reserveErr  error
	reservation *train.Reservation

	statuses  map[train.TaskID][]train.Task
	fetchErr  error
	fetches   map[train.TaskID]int
	cancelErr error

	searchGate chan struct{}
	fetchGate  chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		statuses: make(map[train.TaskID][]train.Task),
		fetches:  make(map[train.TaskID]int),
	}
}

func (b *fakeBackend) Search(ctx context.Context, criteria train.SearchCriteria) ([]train.Candidate, error) {
	b.mu.Lock()
	gate := b.searchGate
	b.searches = append(b.searches, criteria)
	candidates, err := b.candidates, b.searchErr
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return candidates, err
}

func (b *fakeBackend) Reserve(ctx context.Context, reservation train.Reservation) (train.TaskID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reservation = &reservation
	return b.reserveID, b.reserveErr
}

func (b *fakeBackend) FetchStatus(ctx context.Context, id train.TaskID) (train.Task, error) {
	b.mu.Lock()
	b.fetches[id]++
	gate := b.fetchGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return train.Task{}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return train.Task{}, b.fetchErr
	}
	queue := b.statuses[id]
	if len(queue) == 0 {
		return train.Task{ID: id, Status: train.StatusRunning, IsActive: true}, nil
	}
	next := queue[0]
	if len(queue) > 1 {
		b.statuses[id] = queue[1:]
	}
	return next, nil
}

func (b *fakeBackend) RequestCancel(ctx context.Context, id train.TaskID) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelErr != nil {
		return "", b.cancelErr
	}
	return fmt.Sprintf("Task %s cancelled successfully.", id), nil
}

func (b *fakeBackend) fetchCount(id train.TaskID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches[id]
}

func (b *fakeBackend) searchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.searches)
}

func newTestController(t *testing.T, backend *fakeBackend, opts Options) *Controller {
	t.Helper()
	if opts.Interval == 0 {
		opts.Interval = 5 * time.Millisecond
	}
	c, err := New(backend, opts)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func readyOptions() Options {
	return Options{Mode: train.ModeKTX, AccountID: 1, Date: "20261015", Time: "0600"}
}

func waitFor(t *testing.T, c *Controller, condition func(Session) bool) Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		session := c.Session()
		if condition(session) {
			return session
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met; session %+v", c.Session())
	return Session{}
}

var sampleCandidates = []train.Candidate{
	{TrainNo: "101", TrainType: "KTX", DepTime: "060000", ArrTime: "083000", DepStation: "서울", ArrStation: "부산", IsAvailable: true, GeneralSeatAvailable: true, TrainID: "k-101"},
	{TrainNo: "103", TrainType: "KTX", DepTime: "063000", ArrTime: "090000", DepStation: "서울", ArrStation: "부산"},
}

func TestNewSessionDefaults(t *testing.T) {
	c := newTestController(t, newFakeBackend(), Options{Mode: train.ModeSRT})
	session := c.Session()
	if session.ID == "" {
		t.Fatal("expected a session id")
	}
	if session.Origin.Name != "수서" || session.Destination.Name != "부산" {
		t.Fatalf("unexpected SRT default route %v -> %v", session.Origin, session.Destination)
	}
	if session.Time != DefaultTime || session.Date != "" || session.Searched() || session.Monitoring() {
		t.Fatalf("unexpected initial session %+v", session)
	}
}

func TestSearchRequiresAccountThenDate(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, Options{})

	_, err := c.Search(context.Background())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "account" {
		t.Fatalf("expected account validation error, got %v", err)
	}
	if got := c.Session().Message; got != "Please select an account first." {
		t.Fatalf("unexpected message %q", got)
	}

	if err := c.SelectAccount(2); err != nil {
		t.Fatalf("select account: %v", err)
	}
	_, err = c.Search(context.Background())
	if !errors.As(err, &validationErr) || validationErr.Field != "date" {
		t.Fatalf("expected date validation error, got %v", err)
	}
	if got := c.Session().Message; got != "Please select a date." {
		t.Fatalf("unexpected message %q", got)
	}
	if backend.searchCount() != 0 {
		t.Fatal("expected no search request for invalid criteria")
	}
}

func TestSearchStoresCandidatesInOrder(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	c := newTestController(t, backend, readyOptions())

	candidates, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	session := c.Session()
	if len(candidates) != 2 || len(session.Candidates) != 2 || session.Candidates[0].TrainNo != "101" {
		t.Fatalf("unexpected candidates %+v", session.Candidates)
	}
	if session.Busy || session.Message != "" {
		t.Fatalf("expected idle session without message, got %+v", session)
	}
	criteria := backend.searches[0]
	if criteria.Origin.Name != "서울" || criteria.TimeFrom() != "060000" || criteria.AccountID != 1 {
		t.Fatalf("unexpected criteria %+v", criteria)
	}
}

func TestSearchIsRepeatable(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	c := newTestController(t, backend, readyOptions())

	first, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if len(first) != len(second) || first[0] != second[0] || first[1] != second[1] {
		t.Fatal("expected identical results for identical criteria")
	}
	if backend.searches[0] != backend.searches[1] {
		t.Fatal("expected identical criteria on both searches")
	}
}

func TestSearchNoResults(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = []train.Candidate{}
	c := newTestController(t, backend, readyOptions())

	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	session := c.Session()
	if !session.Searched() || len(session.Candidates) != 0 {
		t.Fatalf("expected empty candidate list, got %#v", session.Candidates)
	}
	if session.Message != "No trains found for your criteria." {
		t.Fatalf("unexpected message %q", session.Message)
	}
}

func TestSearchFailureKeepsPreviousCandidates(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	c := newTestController(t, backend, readyOptions())
	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}

	backend.mu.Lock()
	backend.searchErr = &worker.BackendError{StatusCode: http.StatusNotFound, Message: "Account not found."}
	backend.mu.Unlock()
	if _, err := c.Search(context.Background()); err == nil {
		t.Fatal("expected search error")
	}
	session := c.Session()
	if len(session.Candidates) != 2 {
		t.Fatalf("expected previous candidates to be kept, got %d", len(session.Candidates))
	}
	if session.Message != "Failed to search trains: Account not found." || session.MessageLevel != diaglog.LevelError {
		t.Fatalf("unexpected message %q (%s)", session.Message, session.MessageLevel)
	}

	backend.mu.Lock()
	backend.searchErr = &worker.TransportError{Op: "POST /search", Err: errors.New("connection refused")}
	backend.mu.Unlock()
	_, _ = c.Search(context.Background())
	if got := c.Session().Message; got != "Error: POST /search: connection refused" {
		t.Fatalf("unexpected transport message %q", got)
	}
}

func TestConcurrentSearchIsBusy(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	backend.searchGate = make(chan struct{})
	c := newTestController(t, backend, readyOptions())

	done := make(chan error, 1)
	go func() {
		_, err := c.Search(context.Background())
		done <- err
	}()
	waitFor(t, c, func(s Session) bool { return s.Busy })

	if _, err := c.Search(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := c.SwitchMode(train.ModeSRT); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected mode switch to be refused while busy, got %v", err)
	}
	close(backend.searchGate)
	if err := <-done; err != nil {
		t.Fatalf("first search: %v", err)
	}
	if backend.searchCount() != 1 {
		t.Fatalf("expected one search request, got %d", backend.searchCount())
	}
}

func TestHappyPathReservationMonitorsUntilSuccess(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	backend.reserveID = 42
	backend.statuses[42] = []train.Task{
		{ID: 42, Status: train.StatusRunning, IsActive: true, DepStation: "서울", ArrStation: "부산", SelectedDepTime: "060000"},
		{ID: 42, Status: train.StatusSuccess, IsActive: false, DepStation: "서울", ArrStation: "부산", SelectedDepTime: "060000"},
	}
	c := newTestController(t, backend, readyOptions())

	candidates, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	id, err := c.Reserve(context.Background(), candidates[0])
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected task 42, got %d", id)
	}

	session := c.Session()
	if session.Candidates != nil {
		t.Fatal("expected candidate list to be discarded after reservation")
	}
	if backend.reservation == nil || backend.reservation.SelectedTrainID != "k-101" || *backend.reservation.SelectedTrainClass != train.SeatGeneral {
		t.Fatalf("unexpected reservation payload %+v", backend.reservation)
	}

	final := waitFor(t, c, func(s Session) bool { return !s.Monitoring() })
	if final.Message != "Task SUCCESS: 서울 -> 부산 (060000)" {
		t.Fatalf("unexpected final message %q", final.Message)
	}
	if final.Task == nil || final.Task.Status != train.StatusSuccess {
		t.Fatalf("expected final SUCCESS snapshot, got %+v", final.Task)
	}
	time.Sleep(20 * time.Millisecond)
	if got := backend.fetchCount(42); got != 2 {
		t.Fatalf("expected exactly 2 status fetches, got %d", got)
	}
}

func TestReservationCreatedMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.reserveID = 8
	var mu sync.Mutex
	var messages []string
	opts := readyOptions()
	opts.OnChange = func(s Session) {
		mu.Lock()
		messages = append(messages, s.Message)
		mu.Unlock()
	}
	c := newTestController(t, backend, opts)

	if _, err := c.Reserve(context.Background(), sampleCandidates[0]); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := "Reservation task created successfully! Worker will now attempt to book. Monitoring Task ID: 8"
	found := false
	for _, message := range messages {
		if message == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q among %q", want, messages)
	}
	if messages[0] != "Initiating reservation..." {
		t.Fatalf("expected reservation to announce itself first, got %q", messages[0])
	}
}

func TestReserveFailureKeepsCandidates(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	backend.reserveErr = &worker.BackendError{StatusCode: http.StatusNotFound, Message: "Account not found."}
	c := newTestController(t, backend, readyOptions())

	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := c.Reserve(context.Background(), sampleCandidates[0]); err == nil {
		t.Fatal("expected reserve error")
	}
	session := c.Session()
	if len(session.Candidates) != 2 || session.Monitoring() {
		t.Fatalf("unexpected session after failed reservation %+v", session)
	}
	if session.Message != "Failed to create reservation task: Account not found." {
		t.Fatalf("unexpected message %q", session.Message)
	}
}

func TestReserveRejectsSoldOutCandidate(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, readyOptions())
	_, err := c.Reserve(context.Background(), sampleCandidates[1])
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if backend.reservation != nil {
		t.Fatal("expected no reservation request")
	}
}

func TestSearchRefusedWhileMonitoring(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, readyOptions())
	if err := c.Watch(context.Background(), 5); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if _, err := c.Search(context.Background()); !errors.Is(err, ErrTaskActive) {
		t.Fatalf("expected ErrTaskActive, got %v", err)
	}
	if _, err := c.Reserve(context.Background(), sampleCandidates[0]); !errors.Is(err, ErrTaskActive) {
		t.Fatalf("expected ErrTaskActive, got %v", err)
	}
}

func TestOptimisticCancellation(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, readyOptions())
	if err := c.Watch(context.Background(), 11); err != nil {
		t.Fatalf("watch: %v", err)
	}
	waitFor(t, c, func(s Session) bool { return s.Task != nil && s.Task.Status == train.StatusRunning })

	message, err := c.CancelActiveTask(context.Background())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(message, "cancelled") {
		t.Fatalf("unexpected worker message %q", message)
	}
	session := c.Session()
	if session.Monitoring() || session.Task == nil || session.Task.IsActive || session.Task.Status != train.StatusStopped {
		t.Fatalf("expected optimistic STOPPED snapshot, got %+v", session)
	}
	if session.Message != "Task cancelled successfully." {
		t.Fatalf("unexpected message %q", session.Message)
	}
	fetches := backend.fetchCount(11)
	time.Sleep(30 * time.Millisecond)
	if backend.fetchCount(11) != fetches {
		t.Fatal("expected no fetches after cancellation")
	}
	if c.MonitorState() != monitor.Idle {
		t.Fatalf("expected idle monitor, got %s", c.MonitorState())
	}
}

func TestCancelBeforeFirstSnapshotKeepsRoute(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	backend.reserveID = 42
	backend.fetchGate = make(chan struct{})
	c := newTestController(t, backend, readyOptions())

	candidates, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := c.Reserve(context.Background(), candidates[0]); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	waitFor(t, c, func(Session) bool { return backend.fetchCount(42) == 1 })

	if _, err := c.CancelActiveTask(context.Background()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	session := c.Session()
	task := session.Task
	if task == nil || task.ID != 42 || task.Status != train.StatusStopped || task.IsActive {
		t.Fatalf("expected STOPPED snapshot for task 42, got %+v", task)
	}
	if task.DepStation != "서울" || task.ArrStation != "부산" || task.SelectedTrainType != "KTX" || task.SelectedDepTime != "060000" {
		t.Fatalf("expected route and train to be kept, got %+v", task)
	}
}

func TestCancelFailureKeepsMonitoring(t *testing.T) {
	backend := newFakeBackend()
	backend.cancelErr = &worker.TransportError{Op: "POST /tasks/11/cancel", Err: errors.New("connection refused")}
	c := newTestController(t, backend, readyOptions())
	if err := c.Watch(context.Background(), 11); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if _, err := c.CancelActiveTask(context.Background()); err == nil {
		t.Fatal("expected cancel error")
	}
	session := c.Session()
	if !session.Monitoring() || session.TaskID != 11 {
		t.Fatalf("expected task 11 to stay monitored, got %+v", session)
	}
	if session.Message != "Error cancelling task: POST /tasks/11/cancel: connection refused" {
		t.Fatalf("unexpected message %q", session.Message)
	}
}

func TestCancelWithoutTask(t *testing.T) {
	c := newTestController(t, newFakeBackend(), readyOptions())
	if _, err := c.CancelActiveTask(context.Background()); !errors.Is(err, ErrNoActiveTask) {
		t.Fatalf("expected ErrNoActiveTask, got %v", err)
	}
}

func TestPollFailureReportsReason(t *testing.T) {
	backend := newFakeBackend()
	backend.fetchErr = &worker.BackendError{StatusCode: http.StatusInternalServerError, Message: "Internal server error while fetching task status"}
	c := newTestController(t, backend, readyOptions())
	if err := c.Watch(context.Background(), 3); err != nil {
		t.Fatalf("watch: %v", err)
	}
	session := waitFor(t, c, func(s Session) bool { return !s.Monitoring() })
	if session.Message != "Failed to monitor task status: Internal server error while fetching task status" {
		t.Fatalf("unexpected message %q", session.Message)
	}
	if session.Task != nil {
		t.Fatalf("expected snapshot to be cleared, got %+v", session.Task)
	}
}

func TestUnknownTaskIsFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.fetchErr = &worker.BackendError{StatusCode: http.StatusNotFound, Message: "Task not found"}
	c := newTestController(t, backend, readyOptions())
	if err := c.Watch(context.Background(), 404); err != nil {
		t.Fatalf("watch: %v", err)
	}
	session := waitFor(t, c, func(s Session) bool { return !s.Monitoring() })
	if session.Message != "Failed to monitor task status: Task not found" {
		t.Fatalf("unexpected message %q", session.Message)
	}
}

func TestUnrecognizedStatusMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.statuses[6] = []train.Task{{ID: 6, Status: "PAUSED", IsActive: true}}
	c := newTestController(t, backend, readyOptions())
	if err := c.Watch(context.Background(), 6); err != nil {
		t.Fatalf("watch: %v", err)
	}
	session := waitFor(t, c, func(s Session) bool { return !s.Monitoring() })
	if session.Message != `Error monitoring task status: unrecognized status: "PAUSED"` {
		t.Fatalf("unexpected message %q", session.Message)
	}
}

func TestInactiveUnrecognizedStatusFinishes(t *testing.T) {
	backend := newFakeBackend()
	backend.statuses[9] = []train.Task{{ID: 9, Status: "CANCELLED", IsActive: false, DepStation: "서울", ArrStation: "부산", SelectedDepTime: "060000"}}
	c := newTestController(t, backend, readyOptions())
	if err := c.Watch(context.Background(), 9); err != nil {
		t.Fatalf("watch: %v", err)
	}
	session := waitFor(t, c, func(s Session) bool { return !s.Monitoring() })
	if session.Message != "Task CANCELLED: 서울 -> 부산 (060000)" {
		t.Fatalf("unexpected message %q", session.Message)
	}
	if session.Task == nil || session.Task.Status != "CANCELLED" {
		t.Fatalf("expected the final snapshot to be kept, got %+v", session.Task)
	}
}

func TestSnapshotVersionsIncrease(t *testing.T) {
	var mu sync.Mutex
	var versions []uint64
	opts := readyOptions()
	opts.OnChange = func(s Session) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
	}
	c := newTestController(t, newFakeBackend(), opts)
	for _, value := range []string{"0700", "0800"} {
		if err := c.SetTime(value); err != nil {
			t.Fatalf("set time %s: %v", value, err)
		}
	}
	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(versions) < 4 {
		t.Fatalf("expected a snapshot per change, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("expected increasing versions, got %v", versions)
		}
	}
	if got := c.Session().Version; got != versions[len(versions)-1] {
		t.Fatalf("expected session version %d, got %d", versions[len(versions)-1], got)
	}
}

func TestWatchSwitchesTasks(t *testing.T) {
	backend := newFakeBackend()
	c := newTestController(t, backend, readyOptions())

	if err := c.Watch(context.Background(), 1); err != nil {
		t.Fatalf("watch 1: %v", err)
	}
	waitFor(t, c, func(s Session) bool { return backend.fetchCount(1) >= 2 })
	if err := c.Watch(context.Background(), 1); err != nil {
		t.Fatalf("re-watch 1: %v", err)
	}
	if err := c.Watch(context.Background(), 2); err != nil {
		t.Fatalf("watch 2: %v", err)
	}
	stoppedAt := backend.fetchCount(1)
	waitFor(t, c, func(s Session) bool { return s.Task != nil && s.Task.ID == 2 && s.Task.Status == train.StatusRunning })
	time.Sleep(20 * time.Millisecond)
	if backend.fetchCount(1) != stoppedAt {
		t.Fatal("expected task 1 polling to stop after switching")
	}
	if session := c.Session(); session.TaskID != 2 || session.Task.ID != 2 {
		t.Fatalf("expected task 2 to be monitored, got %+v", session)
	}
}

func TestSwitchModeResetsRouteAndCandidates(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	c := newTestController(t, backend, readyOptions())
	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := c.SetDestination("대전"); err != nil {
		t.Fatalf("set destination: %v", err)
	}

	if err := c.SwitchMode(train.ModeSRT); err != nil {
		t.Fatalf("switch: %v", err)
	}
	session := c.Session()
	if session.Mode != train.ModeSRT || session.Origin.Name != "수서" || session.Destination.Name != "부산" {
		t.Fatalf("expected SRT defaults, got %+v", session)
	}
	if session.Candidates != nil {
		t.Fatal("expected candidates to be discarded")
	}
	if session.Date != "20261015" || session.AccountID != 1 {
		t.Fatal("expected date and account to survive a mode switch")
	}
}

func TestSwitchModeSameModeIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	c := newTestController(t, backend, readyOptions())
	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := c.SwitchMode(train.ModeKTX); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if len(c.Session().Candidates) != 2 {
		t.Fatal("expected candidates to survive a no-op switch")
	}
}

func TestSwitchModeBlockedWhileMonitoring(t *testing.T) {
	c := newTestController(t, newFakeBackend(), readyOptions())
	if err := c.Watch(context.Background(), 4); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := c.SwitchMode(train.ModeSRT); !errors.Is(err, ErrTaskActive) {
		t.Fatalf("expected ErrTaskActive, got %v", err)
	}
	session := c.Session()
	if session.Mode != train.ModeKTX || session.TaskID != 4 {
		t.Fatalf("expected session untouched, got %+v", session)
	}
}

func TestSelectionSetters(t *testing.T) {
	c := newTestController(t, newFakeBackend(), Options{})
	if err := c.SetDate("2026-10-20"); err != nil {
		t.Fatalf("set date: %v", err)
	}
	if err := c.SetTime("14:30"); err != nil {
		t.Fatalf("set time: %v", err)
	}
	if err := c.SetOrigin("대전"); err != nil {
		t.Fatalf("set origin: %v", err)
	}
	c.SwapStations()
	c.ShiftDate(1)
	c.ShiftTime(-1)

	session := c.Session()
	if session.Date != "20261021" || session.Time != "1330" {
		t.Fatalf("unexpected date/time %s %s", session.Date, session.Time)
	}
	if session.Origin.Name != "부산" || session.Destination.Name != "대전" {
		t.Fatalf("unexpected route %v -> %v", session.Origin, session.Destination)
	}

	if err := c.SetOrigin("수서"); err == nil {
		t.Fatal("expected SRT-only station to be rejected in KTX mode")
	}
	if err := c.SelectAccount(0); err == nil {
		t.Fatal("expected invalid account to be rejected")
	}
	if err := c.SetDate("someday"); err == nil {
		t.Fatal("expected invalid date to be rejected")
	}
}

func TestSessionSnapshotsAreIsolated(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = sampleCandidates
	c := newTestController(t, backend, readyOptions())
	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	session := c.Session()
	session.Candidates[0].TrainNo = "changed"
	if c.Session().Candidates[0].TrainNo != "101" {
		t.Fatal("expected session snapshot to be a copy")
	}
}

func TestDiagnosticsRecordWorkflow(t *testing.T) {
	backend := newFakeBackend()
	backend.candidates = []train.Candidate{}
	sink := diaglog.New(diaglog.Options{})
	opts := readyOptions()
	opts.Diagnostics = sink
	c := newTestController(t, backend, opts)

	if _, err := c.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if c.Diagnostics() != sink {
		t.Fatal("expected configured sink")
	}
	text := sink.String()
	if !strings.Contains(text, "INFO: Initiating train search") || !strings.Contains(text, "INFO: Found 0 trains.") {
		t.Fatalf("unexpected diagnostics:\n%s", text)
	}
}
