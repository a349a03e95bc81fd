package header

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Errors returned by the parser. Callers in internal/loadorder translate
// these into the CORE's own tagged Error kinds.
var (
	ErrNotPlugin        = errors.New("file is not a valid plugin")
	ErrTruncatedFile    = errors.New("plugin file is truncated")
	ErrInvalidSignature = errors.New("invalid record signature")
)

// Parser reads and parses plugin file headers.
type Parser struct {
	cache *Cache
}

// NewParser creates a parser. cache may be nil, in which case every call
// re-reads and re-parses the file.
func NewParser(cache *Cache) *Parser {
	return &Parser{cache: cache}
}

// ParseFile parses a plugin file from disk, consulting the cache first.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Header, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat plugin file: %w", err)
	}

	if p.cache != nil {
		if h, ok := p.cache.Get(ctx, path, info.ModTime(), info.Size()); ok {
			return h, nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin file: %w", err)
	}
	defer file.Close()

	filename := baseName(path)
	h, err := p.Parse(ctx, file, filename)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Set(ctx, path, info.ModTime(), info.Size(), h)
	}

	return h, nil
}

// Parse reads and parses a plugin header from the given reader.
func (p *Parser) Parse(ctx context.Context, r io.Reader, filename string) (*Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := &Header{
		Filename: filename,
		Masters:  []string{},
	}

	rh, err := readRecordHeader(r)
	if err != nil {
		return nil, err
	}

	if rh.signature != SignatureTES4 {
		return nil, fmt.Errorf("%w: expected TES4, got %s", ErrInvalidSignature, rh.signature)
	}

	h.IsMaster = rh.flags&FlagMaster != 0
	h.IsLightMaster = rh.flags&FlagLight != 0
	h.FormVersion = rh.formVersion

	data := make([]byte, rh.dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedFile, err)
	}

	if err := parseSubrecords(data, h); err != nil {
		return nil, err
	}

	return h, nil
}

type recordHeader struct {
	signature   string
	dataSize    uint32
	flags       uint32
	formID      uint32
	timestamp   uint32
	formVersion uint16
	unknown     uint16
}

// readRecordHeader reads the fixed 24-byte record header:
// 4 bytes type, 4 bytes data size, 4 bytes flags, 4 bytes form ID,
// 4 bytes timestamp/VC info, 2 bytes form version, 2 bytes unknown.
func readRecordHeader(r io.Reader) (*recordHeader, error) {
	var buf [24]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedFile, err)
		}
		return nil, fmt.Errorf("read record header: %w", err)
	}

	signature := string(buf[0:4])
	for _, c := range signature {
		if c < 32 || c > 126 {
			return nil, fmt.Errorf("%w: invalid characters in signature", ErrNotPlugin)
		}
	}

	return &recordHeader{
		signature:   signature,
		dataSize:    binary.LittleEndian.Uint32(buf[4:8]),
		flags:       binary.LittleEndian.Uint32(buf[8:12]),
		formID:      binary.LittleEndian.Uint32(buf[12:16]),
		timestamp:   binary.LittleEndian.Uint32(buf[16:20]),
		formVersion: binary.LittleEndian.Uint16(buf[20:22]),
		unknown:     binary.LittleEndian.Uint16(buf[22:24]),
	}, nil
}

func parseSubrecords(data []byte, h *Header) error {
	reader := bytes.NewReader(data)

	for reader.Len() > 0 {
		var subHeader [6]byte
		if _, err := io.ReadFull(reader, subHeader[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read subrecord header: %w", err)
		}

		subType := string(subHeader[0:4])
		subSize := binary.LittleEndian.Uint16(subHeader[4:6])

		subData := make([]byte, subSize)
		if _, err := io.ReadFull(reader, subData); err != nil {
			return fmt.Errorf("read subrecord %s data: %w", subType, err)
		}

		switch subType {
		case SignatureHEDR:
			if len(subData) >= 8 {
				h.NumRecords = binary.LittleEndian.Uint32(subData[4:8])
			}
		case SignatureCNAM:
			h.Author = readNullString(subData)
		case SignatureSNAM:
			h.Description = readNullString(subData)
		case SignatureMAST:
			if name := readNullString(subData); name != "" {
				h.Masters = append(h.Masters, name)
			}
		case SignatureDATA:
			// Master file size, paired with the preceding MAST; the CORE
			// does not use master sizes so it is intentionally discarded.
		}
	}

	return nil
}

func readNullString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
