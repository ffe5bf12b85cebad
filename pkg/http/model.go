package http

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details []ValidationError `json:"details,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"income"`
	Message string                 `json:"message,omitempty" example:"income is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
