package compositor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xob0t/memoroid/pkg/preset"
)

// Sentinel errors. Match them with errors.Is.
var (
	ErrInvalidFormat            = preset.ErrInvalidFormat
	ErrMissingPhoto             = errors.New("missing photo")
	ErrPhotoTooLarge            = errors.New("photo too large")
	ErrMalformedCrop            = errors.New("malformed crop")
	ErrInvalidCrop              = errors.New("invalid crop")
	ErrOverlayDimensionMismatch = errors.New("overlay size mismatch")
	ErrCompositionFailure       = errors.New("composition failed")
)

// Kind classifies a failure by who has to fix it.
type Kind int

const (
	// KindValidation is a bad or missing request field.
	KindValidation Kind = iota + 1
	// KindGeometry is a crop that does not fit the decoded photo.
	KindGeometry
	// KindAsset is an unusable optional layer, such as a mis-sized overlay.
	KindAsset
	// KindInternal is a decode, encode or I/O failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindGeometry:
		return "geometry"
	case KindAsset:
		return "asset"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error is a failed composition stage.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error whose message is formatted like fmt.Errorf, so %w
// keeps the sentinel reachable.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain. Errors that
// carry no kind are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusCode maps err to an HTTP status: caller mistakes are 400, everything
// else is 500.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation, KindGeometry, KindAsset:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
