// Package codec provides the strict Windows-1252 encoding used by the
// timestamp and asterisk load-order files. Plugin filenames have always
// round-tripped through this legacy codec, not UTF-8, so a name that cannot
// be represented in it must be rejected rather than silently mangled.
package codec

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DecodeError reports that a byte sequence read from a load-order file is
// not valid Windows-1252.
type DecodeError struct {
	Bytes []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: invalid windows-1252 byte sequence: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports that a string cannot be represented in Windows-1252,
// e.g. a plugin filename containing a character outside the codec's
// repertoire.
type EncodeError struct {
	Text string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("codec: %q cannot be represented in windows-1252: %v", e.Text, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeWindows1252 decodes b as Windows-1252, strictly: every byte in the
// Windows-1252 repertoire maps to a character, so decoding itself never
// fails, but the result is returned so that callers can validate content
// (e.g. require valid UTF-8 output) at the point they need to.
func DecodeWindows1252(b []byte) (string, error) {
	decoder := charmap.Windows1252.NewDecoder()
	out, err := decoder.Bytes(b)
	if err != nil {
		return "", &DecodeError{Bytes: b, Err: err}
	}
	return string(out), nil
}

// EncodeWindows1252 encodes s as Windows-1252, failing if s contains any
// character the codec cannot represent instead of substituting or dropping
// it.
func EncodeWindows1252(s string) ([]byte, error) {
	encoder := charmap.Windows1252.NewEncoder()
	out, err := encoder.String(s)
	if err != nil {
		return nil, &EncodeError{Text: s, Err: err}
	}
	return []byte(out), nil
}

// strictEncoding is the package-internal encoding.Encoding value, for code
// in this package that needs one directly, e.g. to wrap a bufio.Scanner via
// transform.NewReader.
var strictEncoding encoding.Encoding = charmap.Windows1252
