package messages

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ContactMessage is a persisted inbound inquiry, answered or not.
// Answer and DateAnswered are set together, exactly once, by Reply.
type ContactMessage struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Message       string    `json:"message"`
	DateSubmitted time.Time `json:"date_submitted"`
	IsAnswered    bool      `json:"is_answered"`
	Answer        string    `json:"answer,omitempty"`
	DateAnswered  time.Time `json:"date_answered,omitempty"`
}

// SubmitRequest is a public contact form submission.
type SubmitRequest struct {
	Name          string `form:"name" json:"name"`
	Email         string `form:"email" json:"email"`
	Message       string `form:"message" json:"message"`
	BotCheckToken string `form:"botCheckToken" json:"botCheckToken"`
}

// ListOptions filters and bounds the admin review listing.
// Limit 0 means unlimited; IsAnswered nil means both states.
type ListOptions struct {
	Limit      int
	IsAnswered *bool
}

// DefaultListLimit bounds the review listing when the caller gives no limit.
const DefaultListLimit = 100

// MinMessageLength is the minimum length for both the inbound message and the answer.
const MinMessageLength = 10

var (
	// ErrMessageNotFound reports a reply or fetch against an id that does not exist.
	ErrMessageNotFound = errors.New("contact message not found")
	// ErrAlreadyAnswered reports a reply against a message that is already answered.
	// Answered is terminal; there is no re-open operation.
	ErrAlreadyAnswered = errors.New("contact message already answered")
)

// ValidationError carries every failing field of a request so callers can
// surface them all at once instead of catching one at a time.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
