// Package errors provides examples of structured error handling in lendpool.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/lendpool/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeValidation, "range end out of bounds").
		WithDetail("end", 6).
		WithDetail("len", 5)

	fmt.Println(err.Error())

	// Output:
	// validation: range end out of bounds (end=6, len=5)
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeData, "zstd decode failed")

	if errors.IsType(err, errors.ErrorTypeData) {
		fmt.Println("This is a data error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause was unexpected EOF")
	}

	// Output:
	// This is a data error
	// Cause was unexpected EOF
}

// ExampleFromPanic shows how a recovered contract violation is inspected.
func ExampleFromPanic() {
	defer func() {
		err := errors.FromPanic(recover())
		fmt.Println(err.Type)
	}()

	panic(errors.New(errors.ErrorTypeValidation, "use of released handle"))

	// Output:
	// validation
}
