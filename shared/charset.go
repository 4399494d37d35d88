package shared

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Charset names a wire character encoding for a session. The terminal side
// is always UTF-8; inbound peer bytes are decoded from the session charset
// and outbound user input is encoded back into it.
type Charset string

const (
	UTF8    = Charset("UTF-8")
	GB18030 = Charset("GB18030")
	GBK     = Charset("GBK")
	Big5    = Charset("BIG5")
	Latin1  = Charset("LATIN1")
)

var charsets = map[Charset]encoding.Encoding{
	GB18030: simplifiedchinese.GB18030,
	GBK:     simplifiedchinese.GBK,
	Big5:    traditionalchinese.Big5,
	Latin1:  charmap.ISO8859_1,
}

// LookupCharset resolves a user-supplied charset name, case-insensitively.
func LookupCharset(name string) (Charset, bool) {
	c := Charset(strings.ToUpper(strings.TrimSpace(name)))
	switch c {
	case "UTF8":
		return UTF8, true
	case UTF8:
		return c, true
	}
	if _, ok := charsets[c]; ok {
		return c, true
	}
	return "", false
}

// DecodeFrom converts peer bytes in the given charset to UTF-8. Bytes that do
// not decode are passed through untouched rather than dropped.
func DecodeFrom(c Charset, data []byte) []byte {
	enc, ok := charsets[c]
	if !ok {
		return data
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

// EncodeTo converts UTF-8 user input into the given charset.
func EncodeTo(c Charset, data []byte) []byte {
	enc, ok := charsets[c]
	if !ok {
		return data
	}
	encoded, err := enc.NewEncoder().Bytes(data)
	if err != nil {
		return data
	}
	return encoded
}
