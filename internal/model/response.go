package model

// Response is the JSON envelope returned by every HTTP endpoint.
type Response struct {
	Data    any     `json:"data,omitempty"`
	Error   *string `json:"error,omitempty"`
	Message string  `json:"message"`
}

func Success(data any) Response {
	return Response{Data: data, Message: "Success"}
}

func Failure(errMsg string) Response {
	return Response{Error: &errMsg, Message: "Error"}
}
