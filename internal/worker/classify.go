package worker

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Class sorts a failed attempt into the retry taxonomy. The pool retries only
// Transient failures; Quota and Fatal end the unit of work immediately.
type Class int

const (
	ClassOK Class = iota
	ClassTransient
	ClassQuota
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassTransient:
		return "transient"
	case ClassQuota:
		return "quota"
	default:
		return "fatal"
	}
}

// Classifier decides the Class of an error from a unit of work.
type Classifier func(error) Class

// ClassifyErr is the default Classifier, tuned for OpenAI-style API errors:
// quota exhaustion is terminal, 429 and 5xx are transient, everything else is
// fatal for that unit of work.
func ClassifyErr(err error) Class {
	if err == nil {
		return ClassOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok {
			switch strings.ToLower(code) {
			case "insufficient_quota", "billing_error":
				return ClassQuota
			case "rate_limit_exceeded", "rate_limit_error":
				return ClassTransient
			}
		}
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable:
			return ClassTransient
		}
		return ClassFatal
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable:
			return ClassTransient
		}
		return ClassFatal
	}

	if isTransientNetworkError(err) {
		return ClassTransient
	}
	return ClassFatal
}

func isTransientNetworkError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "rate limit")
}
