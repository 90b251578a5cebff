// Package workerstub is an in-memory stand-in for the reservation worker.
// It speaks the worker's HTTP contract and simulates task progress without
// booking anything.
package workerstub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	internalstrings "github.com/amonks/rail/internal/strings"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/worker"
	"github.com/google/uuid"
)

// DefaultFetchesToFinish is how many status fetches a task takes to finish.
const DefaultFetchesToFinish = 2

const shutdownTimeout = 5 * time.Second

// ServerOptions configures a stub worker.
type ServerOptions struct {
	// Accounts seeds the account store. Nil seeds DefaultAccounts.
	Accounts []train.Account
	// FetchesToFinish is the number of GET /tasks/{id} calls after which a
	// task reaches a terminal status. Earlier fetches report RUNNING.
	FetchesToFinish int
	Now             func() time.Time
	Logger          *log.Logger
}

// DefaultAccounts returns the accounts a fresh stub starts with.
func DefaultAccounts() []train.Account {
	return []train.Account{
		{ID: 1, Type: train.ModeKTX, Username: "ktx-demo", Password: "demo"},
		{ID: 2, Type: train.ModeSRT, Username: "srt-demo", Password: "demo"},
	}
}

// Server serves the worker HTTP contract from memory.
type Server struct {
	fetchesToFinish int
	now             func() time.Time
	logger          *log.Logger

	mu          sync.Mutex
	accounts    []train.Account
	nextAccount int64
	tasks       map[train.TaskID]*stubTask
	nextTask    train.TaskID
}

type stubTask struct {
	reservation train.Reservation
	task        train.Task
	fetches     int
}

var (
	errTaskNotFound    = errors.New("Task not found")
	errAccountNotFound = errors.New("Account not found.")
	errInvalidMode     = errors.New("Invalid train mode")
)

// NewServer creates a stub worker.
func NewServer(opts ServerOptions) *Server {
	accounts := opts.Accounts
	if accounts == nil {
		accounts = DefaultAccounts()
	}
	fetches := opts.FetchesToFinish
	if fetches <= 0 {
		fetches = DefaultFetchesToFinish
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		fetchesToFinish: fetches,
		now:             now,
		logger:          opts.Logger,
		accounts:        append([]train.Account(nil), accounts...),
		tasks:           make(map[train.TaskID]*stubTask),
		nextTask:        1,
	}
	for _, account := range s.accounts {
		if account.ID >= s.nextAccount {
			s.nextAccount = account.ID + 1
		}
	}
	if s.nextAccount == 0 {
		s.nextAccount = 1
	}
	return s
}

// Handler returns the HTTP handler for the worker contract.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /reserve", s.handleReserve)
	mux.HandleFunc("GET /tasks/{id}", s.handleTask)
	mux.HandleFunc("POST /tasks/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /accounts", s.handleAccountsList)
	mux.HandleFunc("POST /accounts", s.handleAccountsCreate)
	return s.requestID(s.recoverHandler(mux))
}

// Serve runs the server on addr until it fails or the process is
// interrupted.
func (s *Server) Serve(addr string) error {
	server := &http.Server{
		Addr:     addr,
		Handler:  s.Handler(),
		ErrorLog: s.logger,
	}

	listenErrs := make(chan error, 1)
	go func() {
		listenErrs <- server.ListenAndServe()
	}()
	s.logf("stub worker listening on %s", addr)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	select {
	case err := <-listenErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logf("server stopped: %v", err)
			return err
		}
		return nil
	case <-interrupts:
		s.logf("interrupt received, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		shutdownErr := server.Shutdown(shutdownCtx)
		cancel()
		listenErr := <-listenErrs
		if errors.Is(listenErr, http.ErrServerClosed) {
			listenErr = nil
		}
		return errors.Join(shutdownErr, listenErr)
	}
}

// Task returns the current state of a task without advancing it.
func (s *Server) Task(id train.TaskID) (train.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tasks[id]
	if !ok {
		return train.Task{}, false
	}
	return snapshot(stored.task), true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var payload worker.SearchRequest
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if !s.hasAccount(payload.AccountID) {
		s.writeError(w, r, http.StatusNotFound, errAccountNotFound)
		return
	}
	if err := validateRoute(payload.TrainMode, payload.DepStationName, payload.ArrStationName); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if _, err := train.ParseDate(payload.Date); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, Timetable(payload.TrainMode, payload.DepStationName, payload.ArrStationName, payload.Date, payload.TimeFrom))
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var payload train.Reservation
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if !s.hasAccount(payload.AccountID) {
		s.writeError(w, r, http.StatusNotFound, errAccountNotFound)
		return
	}

	s.mu.Lock()
	id := s.nextTask
	s.nextTask++
	s.tasks[id] = &stubTask{
		reservation: payload,
		task: train.Task{
			ID:                id,
			Status:            train.StatusPending,
			IsActive:          true,
			Logs:              []train.LogEntry{},
			DepStation:        payload.DepStation,
			ArrStation:        payload.ArrStation,
			SelectedTrainType: payload.SelectedTrainType,
			SelectedDepTime:   payload.SelectedDepTime,
			Date:              payload.Date,
			TimeFrom:          payload.TimeFrom,
		},
	}
	s.mu.Unlock()

	s.logf("created task %d for account %d", id, payload.AccountID)
	writeJSON(w, http.StatusOK, worker.ReserveResponse{Message: "Reservation task created successfully", TaskID: id})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	stored, found := s.tasks[id]
	var task train.Task
	if found {
		s.advance(stored)
		task = snapshot(stored.task)
	}
	s.mu.Unlock()

	if !found {
		s.writeError(w, r, http.StatusNotFound, errTaskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	stored, found := s.tasks[id]
	cancelled := false
	if found && stored.task.IsActive {
		stored.task.Status = train.StatusStopped
		stored.task.IsActive = false
		s.addLog(stored, train.LogInfo, "Task cancelled by user.")
		cancelled = true
	}
	s.mu.Unlock()

	if !found {
		s.writeError(w, r, http.StatusNotFound, errTaskNotFound)
		return
	}
	message := fmt.Sprintf("Task %d is not active and cannot be cancelled.", id)
	if cancelled {
		message = fmt.Sprintf("Task %d cancelled successfully.", id)
	}
	writeJSON(w, http.StatusOK, worker.MessageResponse{Message: message})
}

func (s *Server) handleAccountsList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	accounts := make([]train.Account, len(s.accounts))
	for i, account := range s.accounts {
		account.Password = ""
		accounts[i] = account
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleAccountsCreate(w http.ResponseWriter, r *http.Request) {
	var payload worker.CreateAccountRequest
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if !payload.Type.IsValid() {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid account type %q", payload.Type))
		return
	}
	if internalstrings.IsBlank(payload.Username) || payload.Password == "" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("username and password are required"))
		return
	}

	s.mu.Lock()
	account := train.Account{
		ID:       s.nextAccount,
		Type:     payload.Type,
		Username: strings.TrimSpace(payload.Username),
		Password: payload.Password,
	}
	s.nextAccount++
	s.accounts = append(s.accounts, account)
	s.mu.Unlock()

	account.Password = ""
	writeJSON(w, http.StatusCreated, account)
}

// advance moves a task one step along its scripted lifecycle. Callers
// hold s.mu.
func (s *Server) advance(stored *stubTask) {
	if !stored.task.IsActive {
		return
	}
	stored.fetches++
	res := stored.reservation

	if res.SelectedTrainID == "" || res.SelectedTrainNo == "" {
		s.addLog(stored, train.LogError, "No specific train selected for reservation in task. Marking as failed.")
		s.finish(stored, train.StatusFailed)
		return
	}

	if stored.fetches == 1 {
		stored.task.Status = train.StatusRunning
		s.addLog(stored, train.LogInfo, fmt.Sprintf("Attempting to reserve specific train: %s %s from %s at %s",
			res.SelectedTrainType, res.SelectedTrainNo, res.DepStation, res.SelectedDepTime))
	}
	if stored.fetches < s.fetchesToFinish {
		if stored.fetches > 1 {
			s.addLog(stored, train.LogInfo, fmt.Sprintf("Selected train %s not found or no seats available. Will retry search.", res.SelectedTrainNo))
		}
		return
	}

	if res.SelectedTrainClass == nil {
		s.addLog(stored, train.LogError, fmt.Sprintf("Selected train %s is sold out. Marking as failed.", res.SelectedTrainNo))
		s.finish(stored, train.StatusFailed)
		return
	}
	s.addLog(stored, train.LogSuccess, fmt.Sprintf("Reserved %s %s (%s) %s -> %s",
		res.SelectedTrainType, res.SelectedTrainNo, *res.SelectedTrainClass, res.DepStation, res.ArrStation))
	s.finish(stored, train.StatusSuccess)
}

func (s *Server) finish(stored *stubTask, status train.Status) {
	stored.task.Status = status
	stored.task.IsActive = false
	s.logf("task %d finished with status %s", stored.task.ID, status)
}

func (s *Server) addLog(stored *stubTask, level train.LogLevel, message string) {
	stored.task.Logs = append(stored.task.Logs, train.LogEntry{
		Level:     level,
		Message:   message,
		CreatedAt: s.now().Format(time.RFC3339),
	})
}

func (s *Server) hasAccount(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) taskID(w http.ResponseWriter, r *http.Request) (train.TaskID, bool) {
	raw := r.PathValue("id")
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, fmt.Errorf("invalid task id %q", raw))
		return 0, false
	}
	return train.TaskID(parsed), true
}

func validateRoute(mode train.Mode, dep, arr string) error {
	if !mode.IsValid() {
		return errInvalidMode
	}
	for _, name := range []string{dep, arr} {
		if _, err := train.FindStation(mode, name); err != nil {
			return err
		}
	}
	return nil
}

func snapshot(task train.Task) train.Task {
	task.Logs = append([]train.LogEntry{}, task.Logs...)
	return task
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		s.logf("%s %s (%s)", r.Method, r.URL.Path, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := &responseTracker{ResponseWriter: w}
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logf("panic handling request %s %s: %v\n%s", r.Method, r.URL.Path, recovered, debug.Stack())
				if writer.wroteHeader {
					return
				}
				writeJSON(writer, http.StatusInternalServerError, worker.ErrorResponse{Detail: "Internal server error"})
			}
		}()
		next.ServeHTTP(writer, r)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logf("request %s %s failed (%d): %v", r.Method, r.URL.Path, status, err)
	writeJSON(w, status, worker.ErrorResponse{Detail: err.Error()})
}

func (s *Server) logf(format string, args ...any) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}

type responseTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *responseTracker) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseTracker) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(data)
}
