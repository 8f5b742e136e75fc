package questions

import "gitlab.com/offlinejudge.net/internal/domain"

// RunRequest is the body of POST /api/questions/run. Empty code is graded.
type RunRequest struct {
	ProblemID string `json:"problemId" validate:"required,max=128"`
	Code      string `json:"code"`
}

// StreamRequest is a client frame on the stream websocket
type StreamRequest struct {
	Code string `json:"code"`
}

// TemplateResponse is the starter solution of a problem
type TemplateResponse struct {
	ID           string `json:"id"`
	FunctionName string `json:"functionName"`
	Template     string `json:"template"`
}

const (
	frameResult = "result"
	frameReport = "report"
	frameError  = "error"
)

// StreamFrame is a server frame on the stream websocket
type StreamFrame struct {
	Type   string             `json:"type"`
	Result *domain.TestResult `json:"result,omitempty"`
	Report *domain.RunReport  `json:"report,omitempty"`
	Error  string             `json:"error,omitempty"`
}
