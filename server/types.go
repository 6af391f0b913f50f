package server

// ChatRequest is the payload for /chat
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is the response for /chat
type ChatResponse struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse carries the message for any non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type pageData struct {
	Question string
	Answer   string
	Sources  []string
	Error    string
}
