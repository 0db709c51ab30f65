package dto

// Envelope is the response wrapper every JSON endpoint uses.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Details []string    `json:"details,omitempty"`
}

func OK(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

func OKMessage(message string) Envelope {
	return Envelope{Success: true, Message: message}
}

func Fail(code, message string, details ...string) Envelope {
	return Envelope{Success: false, Error: code, Message: message, Details: details}
}
