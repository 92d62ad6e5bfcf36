/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/quayside/modelstore/errors"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 200 * time.Millisecond
)

// retryPolicy bounds each round trip with a timeout and retries transient
// failures with exponential backoff.
type retryPolicy struct {
	maxAttempts int
	baseBackoff time.Duration
	timeout     time.Duration
}

// Do runs op up to maxAttempts times. Only transient errors (throttling,
// service unavailability) are retried; everything else surfaces immediately.
// The raw error of the last attempt is returned so callers can classify it.
func (p retryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.attempt(ctx, op)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
		if attempt < attempts-1 {
			backoff := p.baseBackoff << attempt
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func (p retryPolicy) attempt(ctx context.Context, op func(context.Context) error) error {
	if p.timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return op(attemptCtx)
}

func isTransient(err error) bool {
	return isThrottle(err) || isUnavailable(err)
}

func isThrottle(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	var rle *types.RequestLimitExceeded
	if errors.As(err, &pte) || errors.As(err, &rle) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ProvisionedThroughputExceededException", "RequestLimitExceeded":
			return true
		}
	}
	return false
}

func isUnavailable(err error) bool {
	var ise *types.InternalServerError
	if errors.As(err, &ise) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InternalServerError", "ServiceUnavailable", "ServiceUnavailableException":
			return true
		}
	}
	return false
}

// classify maps a raw client error into the store's error taxonomy. Transient
// errors reach here only after the retry budget is exhausted.
func (s *Store[T]) classify(op string, err error) error {
	return ClassifyClientError(op, s.binding.Table, err)
}

// ClassifyClientError maps a raw DynamoDB client error into the shared error
// taxonomy: throttling and availability failures become their retryable
// typed errors, validation rejections become ValidationErrors, and anything
// else is wrapped with the operation and table for context.
func ClassifyClientError(op, table string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return err
	case isThrottle(err):
		return &apperrors.ThrottledError{Op: op, Table: table, Err: err}
	case isUnavailable(err):
		return &apperrors.UnavailableError{Op: op, Table: table, Err: err}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return apperrors.NewValidationError("", apiErr.ErrorMessage())
	}
	return fmt.Errorf("%s %s: %w", op, table, err)
}
