package diag

import (
	"errors"
	"fmt"

	"github.com/Code4Community/c4c-lib/pkg/ast"
)

// Kind classifies a runtime or reader failure.
type Kind string

const (
	KindSyntax           Kind = "SyntaxError"
	KindName             Kind = "NameError"
	KindType             Kind = "TypeError"
	KindInvalidConstruct Kind = "InvalidConstruct"
	KindInternal         Kind = "InternalError"
	KindArithmetic       Kind = "ArithmeticError"
	KindRecursion        Kind = "RecursionError"
)

// Error is the single error type produced by the reader, evaluator, step
// evaluator and checker.
type Error struct {
	Kind    Kind
	Message string
	Span    ast.Span
}

func (e *Error) Error() string {
	if e.Span.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", e.Span.Start.Line, e.Span.Start.Column, e.Kind, e.Message)
}

// Is matches another *Error of the same kind, so errors.Is(err, diag.ErrName)
// works for any NameError.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrSyntax           = &Error{Kind: KindSyntax}
	ErrName             = &Error{Kind: KindName}
	ErrType             = &Error{Kind: KindType}
	ErrInvalidConstruct = &Error{Kind: KindInvalidConstruct}
	ErrInternal         = &Error{Kind: KindInternal}
	ErrArithmetic       = &Error{Kind: KindArithmetic}
	ErrRecursion        = &Error{Kind: KindRecursion}
)

func newError(kind Kind, span ast.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span}
}

func Syntaxf(span ast.Span, format string, args ...any) *Error {
	return newError(KindSyntax, span, format, args...)
}

func Namef(span ast.Span, format string, args ...any) *Error {
	return newError(KindName, span, format, args...)
}

func Typef(span ast.Span, format string, args ...any) *Error {
	return newError(KindType, span, format, args...)
}

func InvalidConstructf(span ast.Span, format string, args ...any) *Error {
	return newError(KindInvalidConstruct, span, format, args...)
}

func Internalf(span ast.Span, format string, args ...any) *Error {
	return newError(KindInternal, span, format, args...)
}

func Arithmeticf(span ast.Span, format string, args ...any) *Error {
	return newError(KindArithmetic, span, format, args...)
}

func Recursionf(span ast.Span, format string, args ...any) *Error {
	return newError(KindRecursion, span, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// did not originate here.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// WithSpan fills in the span of a span-less *Error. Natives raise errors
// without position; the call site attaches its own.
func WithSpan(err error, span ast.Span) error {
	var de *Error
	if errors.As(err, &de) && de.Span.IsZero() && !span.IsZero() {
		return &Error{Kind: de.Kind, Message: de.Message, Span: span}
	}
	return err
}
