package transport

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Framing errors.
var (
	ErrEmptyFrame = errors.New("transport: empty frame")
	ErrCOBS       = errors.New("transport: malformed COBS frame")
	ErrCRC        = errors.New("transport: frame CRC mismatch")
)

const crcLen = 4

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeCOBS stuffs data so it contains no zero bytes. The result does not
// include the trailing delimiter.
func EncodeCOBS(data []byte) []byte {
	out := make([]byte, 1, len(data)+len(data)/254+2)
	code, codeAt := byte(1), 0
	for _, b := range data {
		if b == 0 {
			out[codeAt] = code
			codeAt = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeAt] = code
			codeAt = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeAt] = code
	return out
}

// DecodeCOBS reverses EncodeCOBS. data must not include the delimiter.
func DecodeCOBS(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		code := data[i]
		if code == 0 {
			return nil, ErrCOBS
		}
		end := i + int(code)
		if end > len(data) {
			return nil, ErrCOBS
		}
		for _, b := range data[i+1 : end] {
			if b == 0 {
				return nil, ErrCOBS
			}
			out = append(out, b)
		}
		i = end
		if code != 0xFF && i < len(data) {
			out = append(out, 0)
		}
	}
	return out, nil
}

// Frame prefixes payload with its CRC-32C, COBS-encodes the result and
// appends the zero delimiter.
func Frame(payload []byte) []byte {
	body := make([]byte, crcLen+len(payload))
	binary.BigEndian.PutUint32(body, crc32.Checksum(payload, castagnoli))
	copy(body[crcLen:], payload)
	return append(EncodeCOBS(body), 0)
}

// Unframe decodes one delimited chunk, without its delimiter, and checks
// the CRC.
func Unframe(chunk []byte) ([]byte, error) {
	body, err := DecodeCOBS(chunk)
	if err != nil {
		return nil, err
	}
	if len(body) < crcLen {
		return nil, ErrCOBS
	}
	payload := body[crcLen:]
	if binary.BigEndian.Uint32(body) != crc32.Checksum(payload, castagnoli) {
		return nil, ErrCRC
	}
	return payload, nil
}
