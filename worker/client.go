// Package worker is the HTTP client for the reservation worker. It searches
// departures, creates reservation tasks, and reports task status. The client
// keeps no state between calls.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	internalstrings "github.com/amonks/rail/internal/strings"
	"github.com/amonks/rail/train"
	"github.com/google/uuid"
)

// DefaultTimeout bounds each request when ClientOptions.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

const maxErrorBody = 64 << 10

// ClientOptions configures a Client.
type ClientOptions struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client calls the worker's HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts ClientOptions) *Client {
	baseURL = internalstrings.TrimTrailingSlash(strings.TrimSpace(baseURL))
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, client: httpClient, logger: opts.Logger}
}

// BaseURL returns the worker URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search returns departures matching criteria in the order the worker lists them.
func (c *Client) Search(ctx context.Context, criteria train.SearchCriteria) ([]train.Candidate, error) {
	var candidates []train.Candidate
	if err := c.do(ctx, http.MethodPost, "/search", NewSearchRequest(criteria), &candidates); err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []train.Candidate{}
	}
	return candidates, nil
}

// Reserve creates a reservation task and returns its identifier.
func (c *Client) Reserve(ctx context.Context, reservation train.Reservation) (train.TaskID, error) {
	var response ReserveResponse
	if err := c.do(ctx, http.MethodPost, "/reserve", reservation, &response); err != nil {
		return 0, err
	}
	if response.TaskID <= 0 {
		return 0, fmt.Errorf("reserve: worker returned no task id")
	}
	return response.TaskID, nil
}

// FetchStatus returns the current snapshot of a task. Unknown tasks yield an
// error matching ErrNotFound.
func (c *Client) FetchStatus(ctx context.Context, id train.TaskID) (train.Task, error) {
	var task train.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id.String(), nil, &task); err != nil {
		return train.Task{}, err
	}
	return task, nil
}

// RequestCancel asks the worker to stop a task and returns its message.
// A success response is returned even when the task had already finished.
func (c *Client) RequestCancel(ctx context.Context, id train.TaskID) (string, error) {
	var response MessageResponse
	if err := c.do(ctx, http.MethodPost, "/tasks/"+id.String()+"/cancel", struct{}{}, &response); err != nil {
		return "", err
	}
	return response.Message, nil
}

// ListAccounts returns the stored operator accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]train.Account, error) {
	var accounts []train.Account
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// CreateAccount stores a new operator account.
func (c *Client) CreateAccount(ctx context.Context, account train.Account) (train.Account, error) {
	request := CreateAccountRequest{Type: account.Type, Username: account.Username, Password: account.Password}
	var created train.Account
	if err := c.do(ctx, http.MethodPost, "/accounts", request, &created); err != nil {
		return train.Account{}, err
	}
	return created, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logf("%s %s [%s] failed: %v", method, path, requestID, err)
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	c.logf("%s %s [%s] %d in %s", method, path, requestID, resp.StatusCode, time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readErrorResponse(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func readErrorResponse(resp *http.Response) error {
	backendErr := &BackendError{StatusCode: resp.StatusCode, Message: resp.Status}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return backendErr
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		if text := internalstrings.NormalizeWhitespace(string(data)); text != "" && !strings.HasPrefix(text, "<") {
			backendErr.Message = text
		}
		return backendErr
	}
	for _, key := range []string{"message", "detail", "error"} {
		if raw, ok := payload[key]; ok {
			if message := rawMessageText(raw); message != "" {
				backendErr.Message = message
				return backendErr
			}
		}
	}
	return backendErr
}

func rawMessageText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return internalstrings.TrimSpace(text)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return ""
	}
	if compact.String() == "null" {
		return ""
	}
	return compact.String()
}

func (c *Client) logf(format string, args ...any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
