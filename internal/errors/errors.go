// Package errors provides centralized error handling with component and
// category enrichment for the mapping engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryDocumentParsing ErrorCategory = "document-parsing"
	CategoryExtraction      ErrorCategory = "record-extraction"
	CategoryConfiguration   ErrorCategory = "configuration"
	CategoryTraining        ErrorCategory = "model-training"
	CategoryModelLoad       ErrorCategory = "model-loading"
	CategoryModelSave       ErrorCategory = "model-saving"
	CategoryPrediction      ErrorCategory = "prediction"
	CategoryValidation      ErrorCategory = "validation"
	CategoryExport          ErrorCategory = "document-export"
	CategoryDatabase        ErrorCategory = "database"
	CategoryHTTP            ErrorCategory = "http-request"
	CategoryFileIO          ErrorCategory = "file-io"
	CategoryGeneric         ErrorCategory = "generic"
)

// Sentinel errors for the engine taxonomy. Callers test these with Is;
// enriched errors wrap them so positional context travels alongside.
var (
	ErrMalformedDocument = stderrors.New("malformed XML document")
	ErrUnknownProfile    = stderrors.New("unknown sponsor profile")
	ErrEmptyTrainingSet  = stderrors.New("no matching mappings found between ODM and ViewMapping data")
	ErrModelUnavailable  = stderrors.New("no trained model available")
)

// ComponentUnknown is used when the component was not set by the caller.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with component, category and context metadata.
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where the error occurred
	Category  ErrorCategory  // Error category for grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches either the wrapped error chain or another enhanced error's category.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the error context to prevent external modification.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// ContextValue returns a single context value and whether it was present.
func (ee *EnhancedError) ContextValue(key string) (any, bool) {
	if ee.Context == nil {
		return nil, false
	}
	v, ok := ee.Context[key]
	return v, ok
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error builder wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// DocumentContext adds parse position context. Line and column of -1 mean
// the underlying parser did not expose a position.
func (eb *ErrorBuilder) DocumentContext(path string, line, column int) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	if path != "" {
		eb.context["document"] = path
	}
	eb.context["line"] = line
	eb.context["column"] = column
	return eb
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}
	return ee
}

// Standard library passthroughs so callers need a single errors import.

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join wraps multiple errors into a single error.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
