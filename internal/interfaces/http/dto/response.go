package dto

// Response is the envelope of every API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Category      string         `json:"category"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// ValidationDetail is one failed field of a request body or query
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta carries pagination for list responses
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewListResponse wraps a page of items
func NewListResponse(data any, total int64, page, pageSize, totalPages int) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages},
	}
}

// NewErrorResponse builds a failure envelope for a transport-level error
func NewErrorResponse(code, message, category, correlationID string) Response {
	return Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message, Category: category, CorrelationID: correlationID},
	}
}

// NewValidationErrorResponse builds a 400 envelope listing the failed fields
func NewValidationErrorResponse(message, correlationID string, fields []ValidationDetail) Response {
	resp := NewErrorResponse(ErrCodeValidation, message, "VALIDATION", correlationID)
	if len(fields) > 0 {
		resp.Error.Details = map[string]any{"fields": fields}
	}
	return resp
}

// NewErrorEnvelope wraps an ErrorInfo in a failure envelope
func NewErrorEnvelope(info *ErrorInfo) Response {
	return Response{Success: false, Error: info}
}
