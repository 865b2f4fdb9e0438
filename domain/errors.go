package domain

// Kind classifies a domain error so the API boundary can match the closed set
// exhaustively instead of walking an inheritance tree.
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindUnauthorized
	KindBadRequest
)

// Error is the only error type services return for client-visible failures.
// Code is the stable machine-readable code exposed in responses.
type Error struct {
	Kind    Kind
	Message string
	Code    int
}

func (e *Error) Error() string { return e.Message }

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg, Code: 401}
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg, Code: 400}
}

// ErrUnauthorized covers both "not yours" and "does not exist" for mutations.
// The two cases are deliberately indistinguishable to callers so responses
// leak nothing about which ids exist; logs carry the precise reason.
var ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "Unauthorized User", Code: 401}

var (
	ErrIDRequired      = &Error{Kind: KindBadRequest, Message: "id required", Code: 400}
	ErrNameRequired    = &Error{Kind: KindBadRequest, Message: "name required", Code: 400}
	ErrInvalidDueDate  = &Error{Kind: KindBadRequest, Message: "dueDate is Invalid Date", Code: 400}
	ErrProjectNotFound = &Error{Kind: KindBadRequest, Message: "project_id Not Found", Code: 400}
	ErrProjectMismatch = &Error{Kind: KindBadRequest, Message: "project_id Not Match", Code: 400}
	ErrTaskNotFound    = &Error{Kind: KindBadRequest, Message: "task Not Found", Code: 400}
)
