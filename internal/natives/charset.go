package natives

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Charset converts between script strings (UTF-8) and the engine's
// single- or multi-byte encoding.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// UTF8 passes strings through unchanged.
var UTF8 = &Charset{name: "utf-8"}

// LookupCharset resolves an encoding by its WHATWG name or label, such as
// "windows-1252" or "big5".
func LookupCharset(name string) (*Charset, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("engine charset %q: %w", name, err)
	}
	return &Charset{name: name, enc: enc}, nil
}

func (c *Charset) Name() string { return c.name }

// ToEngine encodes s for the engine. Characters the engine charset cannot
// hold are replaced.
func (c *Charset) ToEngine(s string) string {
	if c.enc == nil || isASCII(s) {
		return s
	}
	out, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).String(s)
	if err != nil {
		return s
	}
	return out
}

// FromEngine decodes an engine string to UTF-8.
func (c *Charset) FromEngine(s string) string {
	if c.enc == nil || isASCII(s) {
		return s
	}
	out, err := c.enc.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
