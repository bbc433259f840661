package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeSessionStart represents browser session startup errors
	ErrorTypeSessionStart ErrorType = "session_start"
	// ErrorTypePageFetch represents page fetch/render errors
	ErrorTypePageFetch ErrorType = "page_fetch"
	// ErrorTypeContainerExtraction represents per-listing extraction errors
	ErrorTypeContainerExtraction ErrorType = "container_extraction"
	// ErrorTypeFieldExtraction represents per-field extraction errors
	ErrorTypeFieldExtraction ErrorType = "field_extraction"
	// ErrorTypeNormalization represents text normalization errors
	ErrorTypeNormalization ErrorType = "normalization"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeStore represents storage-related errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type    ErrorType
	Query   string
	Page    int
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	scope := e.Query
	if e.Page > 0 {
		scope = fmt.Sprintf("%s page %d", e.Query, e.Page)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, scope, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, scope, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error must abort the whole scrape.
// Only a failed session start aborts; everything else degrades the result.
func (e *ScrapeError) IsFatal() bool {
	return e.Type == ErrorTypeSessionStart
}

// IsRetryable returns true if the failed operation may be retried
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypePageFetch:
		return true
	case ErrorTypeRateLimit:
		return false
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, query, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Query:   query,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewSessionStart creates a new session start error
func NewSessionStart(message string, err error) *ScrapeError {
	return New(ErrorTypeSessionStart, "", message, err)
}

// NewPageFetch creates a new page fetch error
func NewPageFetch(query string, page int, message string, err error) *ScrapeError {
	e := New(ErrorTypePageFetch, query, message, err)
	e.Page = page
	return e
}

// NewContainerExtraction creates a new container extraction error
func NewContainerExtraction(query, message string, err error) *ScrapeError {
	return New(ErrorTypeContainerExtraction, query, message, err)
}

// NewFieldExtraction creates a new field extraction error
func NewFieldExtraction(query, field string, err error) *ScrapeError {
	return New(ErrorTypeFieldExtraction, query, fmt.Sprintf("field %s unresolved", field), err)
}

// NewNormalization creates a new normalization error
func NewNormalization(query, message string) *ScrapeError {
	return New(ErrorTypeNormalization, query, message, nil)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(query string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, query, message, nil)
}

// NewCache creates a new cache error
func NewCache(message string, err error) *ScrapeError {
	return New(ErrorTypeCache, "", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, "", message, err)
}

// NewStore creates a new store error
func NewStore(message string, err error) *ScrapeError {
	return New(ErrorTypeStore, "", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}
