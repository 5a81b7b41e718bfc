package types

type ChatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	// Field names the rejected input on validation failures.
	Field string `json:"field,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Storage  string `json:"storage"`
	Provider string `json:"provider"`
}

// LoginResponse carries the Google consent URL the browser should open.
type LoginResponse struct {
	URL string `json:"url"`
}

type CompleteHabitRequest struct {
	Date string `json:"date,omitempty"`
}

type CountResponse struct {
	Updated int `json:"updated"`
}
