package dto

// Response is the success envelope shared by all endpoints
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps data in a success envelope
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// OKWithMessage wraps data and a human readable message
func OKWithMessage(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}
