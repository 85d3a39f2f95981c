package httpx

// The bulk endpoint speaks batch.Request and batch.Result directly; only the
// error envelope is HTTP-specific.

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
