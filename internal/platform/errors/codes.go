// Package errors provides structured error codes for the guild state layer.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeNotFound means a read found no matching row or key.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidArgument means the caller supplied an unusable value,
	// such as an empty guild id.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeConstraintViolation means a uniqueness or referential constraint
	// rejected a write.
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"

	// CodeIOFailure means the backing file or database could not be read or
	// written.
	CodeIOFailure Code = "IO_FAILURE"

	// CodeSerializationFailure means a stored document could not be decoded
	// or a value could not be encoded.
	CodeSerializationFailure Code = "SERIALIZATION_FAILURE"

	// CodeLockTimeout means the document lock could not be acquired in time.
	CodeLockTimeout Code = "LOCK_TIMEOUT"
)

// String returns the code text.
func (c Code) String() string {
	return string(c)
}

// Soft reports whether the code is one the dashboard boundary treats as a
// plain "not there" signal rather than a failure worth logging.
func (c Code) Soft() bool {
	return c == CodeNotFound
}
