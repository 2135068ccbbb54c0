package errors

import (
	"errors"
	"testing"
)

var errWrapped = errors.New("wrapped error")

func BenchmarkWrapf(b *testing.B) {
	b.Run("nil cause", func(b *testing.B) {
		for b.Loop() {
			_ = Wrapf(nil, "order %d", 42)
		}
	})

	b.Run("with cause", func(b *testing.B) {
		for b.Loop() {
			_ = Wrapf(errWrapped, "order %d", 42).Error()
		}
	})
}

func BenchmarkWithCode(b *testing.B) {
	b.Run("attach", func(b *testing.B) {
		for b.Loop() {
			_ = WithCode(errWrapped, -2001).Error()
		}
	})

	b.Run("extract wrapped", func(b *testing.B) {
		err := Wrap(WithCode(errWrapped, -2001), "send rejected")
		for b.Loop() {
			_ = Code(err)
		}
	})
}
