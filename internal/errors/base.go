package errors

import (
	"errors"
	"fmt"
)

var (
	_ error = (*wrappedError)(nil)
	_ error = (*codeError)(nil)
)

func New(text string) error {
	return errors.New(text)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Wrap(err error, text string) error {
	if err == nil {
		return nil
	}

	if len(text) == 0 {
		return err
	}

	return &wrappedError{
		err: err,
		msg: text,
	}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrappedError struct {
	err error
	msg string
}

const sep = ", err: "

func (err wrappedError) Error() string {
	if err.err == nil {
		return err.msg
	}

	return err.msg + sep + err.err.Error()
}

func (err wrappedError) Unwrap() error {
	if err.err == nil {
		return errors.New(err.msg)
	}

	return err.err
}

// WithCode attaches a venue status code to err.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}

	return &codeError{err: err, code: code}
}

// Code returns the venue status code carried by err, or 0 if none.
func Code(err error) int {
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}

	return 0
}

type codeError struct {
	err  error
	code int
}

func (err codeError) Error() string {
	return fmt.Sprintf("%s (code %d)", err.err.Error(), err.code)
}

func (err codeError) Unwrap() error {
	return err.err
}
