package worker

import "github.com/amonks/rail/train"

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	AccountID      int64      `json:"accountId"`
	TrainMode      train.Mode `json:"trainMode"`
	DepStationName string     `json:"depStationName"`
	ArrStationName string     `json:"arrStationName"`
	Date           string     `json:"date"`
	TimeFrom       string     `json:"timeFrom"`
}

// NewSearchRequest converts criteria into the worker's search body.
func NewSearchRequest(criteria train.SearchCriteria) SearchRequest {
	return SearchRequest{
		AccountID:      criteria.AccountID,
		TrainMode:      criteria.Mode,
		DepStationName: criteria.Origin.Name,
		ArrStationName: criteria.Destination.Name,
		Date:           criteria.Date,
		TimeFrom:       criteria.TimeFrom(),
	}
}

// ReserveResponse is the body returned by POST /reserve.
type ReserveResponse struct {
	Message string       `json:"message"`
	TaskID  train.TaskID `json:"taskId"`
}

// MessageResponse carries a human-readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateAccountRequest is the body of POST /accounts.
type CreateAccountRequest struct {
	Type     train.Mode `json:"type"`
	Username string     `json:"username"`
	Password string     `json:"password"`
}

// ErrorResponse is the error body the worker writes.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
