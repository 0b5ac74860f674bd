package models

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Code    string       `json:"code,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// ErrorResponse builds the failure envelope for err. Internal details are
// replaced by a generic message when hideInternal is set.
func ErrorResponse(err error, hideInternal bool) Response {
	resp := Response{Success: false, Code: CodeInternal, Message: "Internal server error"}
	appErr, ok := asAppError(err)
	if !ok {
		if !hideInternal && err != nil {
			resp.Message = err.Error()
		}
		return resp
	}

	resp.Code = appErr.Code
	resp.Errors = appErr.Fields
	switch {
	case appErr.Code != CodeInternal:
		resp.Message = appErr.Message
	case !hideInternal && appErr.Err != nil:
		resp.Message = appErr.Err.Error()
	}
	return resp
}
