// Package errors turns Go errors into the short class names tagged onto
// metrics and alert events.
package errors

import (
	"context"
	stderrors "errors"
	"net"
	"reflect"
	"strings"

	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// Classify maps err to a stable class name. Application errors carry
// their own code; for anything else the class falls back to context
// state, network timeouts, then the innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return string(apperrors.ErrCodeTimeout)
	case stderrors.Is(err, context.Canceled):
		return string(apperrors.ErrCodeCanceled)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return "net_timeout"
	}

	return typeName(err)
}

func typeName(err error) string {
	for {
		inner := stderrors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
