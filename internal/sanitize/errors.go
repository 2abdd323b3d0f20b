package sanitize

import "fmt"

// InputReadError reports that a document could not be read to the end.
type InputReadError struct {
	Name string
	Err  error
}

func (e *InputReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Name, e.Err)
}

func (e *InputReadError) Unwrap() error { return e.Err }

// OutputWriteError reports that the sink failed to store a sanitized document.
type OutputWriteError struct {
	Name string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Name, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }
