package train

// Account is a stored operator login used by the worker.
type Account struct {
	ID       int64  `json:"id"`
	Type     Mode   `json:"type"`
	Username string `json:"username"`
	// Password is only sent when creating an account.
	Password string `json:"password,omitempty"`
}
