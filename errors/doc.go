/*
Package errors provides semantic error types for the modelstore library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound       = errors.New("model not found")
	    ErrAlreadyExists  = errors.New("model already exists")
	    ErrValidation     = errors.New("invalid input")
	    ErrThrottled      = errors.New("request throttled")
	    ErrUnavailable    = errors.New("service unavailable")
	    ErrSchemaMismatch = errors.New("table schema mismatch")
	)

Usage:

	// Check error type
	company, err := companies.Retrieve(ctx, "123")
	if err != nil {
	    if errors.IsNotFound(err) {
	        // Handle not found case
	        return nil, fmt.Errorf("company %s does not exist", "123")
	    }
	    return nil, err
	}

	// Create typed errors
	err := errors.NewNotFoundError("companies", "123")
	err := errors.NewValidationError("id", "missing hash key value")

The transient classes (ErrThrottled, ErrUnavailable) are the only ones the
store retries internally; IsRetryable groups them for callers that add their
own retry loops on top.

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
