package dto

// ErrorResponse is the body of every failed request.
// Kind and Details are present for ledger rule violations.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"` // per-field validation failures
}
