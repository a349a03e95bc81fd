package loadorder

import (
	"bytes"
	"os"
	"unicode/utf8"

	"github.com/mod-troubleshooter/loadorder/internal/codec"
)

// splitLines splits data on LF, trimming a trailing CR from each line. The
// final element may be empty if data ends with a line terminator; callers
// skip empty lines.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		lines = append(lines, bytes.TrimRight(line, "\r"))
	}
	return lines
}

// readLinesUTF8 reads path as UTF-8 text, one name per line. A missing
// file is treated as empty, per the textfile strategy's load contract.
func readLinesUTF8(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Kind: KindIOError, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &Error{Kind: KindNotUTF8}
	}

	var names []string
	for _, line := range splitLines(data) {
		if len(line) == 0 {
			continue
		}
		names = append(names, string(line))
	}
	return names, nil
}

// readLinesWindows1252 reads path as strict Windows-1252 text, one name
// per line, used by the asterisk strategy. A missing file is treated as
// empty.
func readLinesWindows1252(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Kind: KindIOError, Err: err}
	}

	var lines []string
	for _, raw := range splitLines(data) {
		if len(raw) == 0 {
			continue
		}
		decoded, err := codec.DecodeWindows1252(raw)
		if err != nil {
			return nil, &Error{Kind: KindDecodeError, Err: err}
		}
		lines = append(lines, decoded)
	}
	return lines, nil
}
