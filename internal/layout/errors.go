package layout

import "fmt"

// ErrorKind classifies failures raised by the layout engine
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidGeometry
	KindInvalidCropDimensions
	KindEmptyInput
	KindUnsupportedStyle
)

// String returns a string representation of the ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidGeometry:
		return "INVALID_GEOMETRY"
	case KindInvalidCropDimensions:
		return "INVALID_CROP_DIMENSIONS"
	case KindEmptyInput:
		return "EMPTY_INPUT"
	case KindUnsupportedStyle:
		return "UNSUPPORTED_STYLE"
	default:
		return "UNKNOWN"
	}
}

// LayoutError is returned by every failing layout operation.
// Two LayoutErrors match under errors.Is when their kinds match.
type LayoutError struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *LayoutError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind.String(), e.Op, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind.String(), e.Message)
}

// Is reports whether target is a LayoutError of the same kind
func (e *LayoutError) Is(target error) bool {
	t, ok := target.(*LayoutError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors for use with errors.Is
var (
	ErrInvalidGeometry       = &LayoutError{Kind: KindInvalidGeometry, Message: "invalid geometry"}
	ErrInvalidCropDimensions = &LayoutError{Kind: KindInvalidCropDimensions, Message: "invalid crop dimensions"}
	ErrEmptyInput            = &LayoutError{Kind: KindEmptyInput, Message: "no text fragments"}
	ErrUnsupportedStyle      = &LayoutError{Kind: KindUnsupportedStyle, Message: "unsupported style"}
)

func newError(kind ErrorKind, op, format string, args ...interface{}) *LayoutError {
	return &LayoutError{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
