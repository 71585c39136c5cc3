package document

import "fmt"

// CodecError reports a failure to read or write a PDF. It aborts only the
// export that produced it.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("pdf %s failed: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
