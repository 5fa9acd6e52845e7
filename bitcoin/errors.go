package bitcoin

import "errors"

var (
	// ErrEmptyVector is returned when a vector declares zero elements.
	ErrEmptyVector = errors.New("vector declares no elements")

	// ErrMalformedVector is returned when a vector cannot be decoded into
	// the number of elements it declares.
	ErrMalformedVector = errors.New("malformed vector")

	// ErrTrailingBytes is returned when bytes remain after the declared
	// number of elements has been decoded.
	ErrTrailingBytes = errors.New("vector has trailing bytes")

	// ErrNotOpReturn is returned when a script does not start with OP_RETURN.
	ErrNotOpReturn = errors.New("script is not an OP_RETURN script")

	// ErrMalformedOpReturn is returned when an OP_RETURN script does not
	// carry exactly one data push.
	ErrMalformedOpReturn = errors.New("malformed OP_RETURN script")

	// ErrBadHeaderLength is returned when a serialized header chain is empty
	// or its length is not a multiple of HeaderSize.
	ErrBadHeaderLength = errors.New("bad header chain length")

	ErrAmountOverflow = errors.New("amount overflows uint64")
)
