package advisory

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRules indicates the framework has no controls loaded; analysis refuses to start.
	ErrNoRules = errors.New("no rules available for framework")
	// ErrUnmatchedCitation indicates the model cited a control/article pair absent from the rule set.
	ErrUnmatchedCitation = errors.New("gap cites unknown control or article")
	// ErrMalformedResponse indicates the model output did not match the response schema.
	ErrMalformedResponse = errors.New("malformed analysis response")
	// ErrUnauthorized indicates a missing caller identity.
	ErrUnauthorized = errors.New("caller identity required")
	// ErrLiabilityNotAccepted indicates adoption without an explicit liability acknowledgment.
	ErrLiabilityNotAccepted = errors.New("liability acknowledgment required")
	// ErrAuditNotFound indicates an unknown audit reference.
	ErrAuditNotFound = errors.New("audit reference not found")
	// ErrInvalidInput indicates a request that failed basic validation.
	ErrInvalidInput = errors.New("invalid input")
)

// CitationError describes the gap that could not be traced.
type CitationError struct {
	Index       int
	Title       string
	ControlCode string
	ArticleCode string
	// MissingText is set when the pair resolved but the control description
	// or article text is empty.
	MissingText bool
}

func (e *CitationError) Error() string {
	if e.MissingText {
		return fmt.Sprintf("gap[%d] %q: control %q / article %q has no citable text", e.Index, e.Title, e.ControlCode, e.ArticleCode)
	}
	return fmt.Sprintf("gap[%d] %q: control %q / article %q not in rule set", e.Index, e.Title, e.ControlCode, e.ArticleCode)
}

func (e *CitationError) Unwrap() error { return ErrUnmatchedCitation }
