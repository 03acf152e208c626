package codec

import "errors"

var (
	ErrMissingSection     = errors.New("missing section")
	ErrMalformedLine      = errors.New("malformed line")
	ErrBadMagic           = errors.New("bad magic number")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrCorrupt            = errors.New("corrupt binary data")
)
