package agent

// Error codes returned to the agent.
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeModelNotFound  = "MODEL_NOT_FOUND"
	CodeInvalidSelect  = "INVALID_SELECT"
	CodeInvalidWhere   = "INVALID_WHERE"
	CodeInvalidOrderBy = "INVALID_ORDER_BY"
	CodeQueryError     = "QUERY_ERROR"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the stable response shape of the list tool.
type Envelope struct {
	Status string `json:"status"`
	Meta   *Meta  `json:"meta,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Meta describes a successful result.
type Meta struct {
	Model       string            `json:"model"`
	Label       string            `json:"label"`
	Properties  map[string]string `json:"properties"`
	Pagination  Pagination        `json:"pagination"`
	TimingMs    int64             `json:"timingMs"`
	RequestedAt string            `json:"requestedAt"`
	Aggregate   map[string]any    `json:"aggregate,omitempty"`
}

type Pagination struct {
	Skip *int `json:"skip,omitempty"`
	Take int  `json:"take"`
}

// Error carries a machine-readable code and a hint the caller can act on.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func failure(code, message, hint string) Envelope {
	return Envelope{Status: StatusError, Error: &Error{Code: code, Message: message, Hint: hint}}
}

// Code returns the error code, or "" on success.
func (e Envelope) Code() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}
