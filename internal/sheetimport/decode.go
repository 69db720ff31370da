package sheetimport

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported by Decode.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-bom"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingLatin1  = "latin-1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode detects the encoding of data from its BOM, strips the BOM and
// returns UTF-8. Invalid UTF-8 without a BOM is read as Latin-1.
func Decode(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, err := transformAll(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), data)
		return out, EncodingUTF16LE, err
	case bytes.HasPrefix(data, bomUTF16BE):
		out, err := transformAll(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder(), data)
		return out, EncodingUTF16BE, err
	case utf8.Valid(data):
		return data, EncodingUTF8, nil
	default:
		out, err := transformAll(charmap.ISO8859_1.NewDecoder(), data)
		return out, EncodingLatin1, err
	}
}

func transformAll(t transform.Transformer, data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	return out, nil
}
