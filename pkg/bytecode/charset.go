package bytecode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// StringDecoder converts strings read from pre-SWF6 buffers to UTF-8.
// SWF6 and later store UTF-8 already.
type StringDecoder struct {
	name string
	enc  encoding.Encoding
}

// LegacyDecoder returns the decoder for the named encoding. Accepted names
// are "windows-1252" (the default for an empty name), "latin1" and
// "shift_jis".
func LegacyDecoder(name string) (*StringDecoder, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "", "windows_1252", "cp1252":
		return &StringDecoder{name: "windows-1252", enc: charmap.Windows1252}, nil
	case "latin1", "iso_8859_1":
		return &StringDecoder{name: "iso-8859-1", enc: charmap.ISO8859_1}, nil
	case "shift_jis", "sjis":
		return &StringDecoder{name: "shift_jis", enc: japanese.ShiftJIS}, nil
	}
	return nil, fmt.Errorf("unknown legacy encoding %q", name)
}

// Name returns the canonical encoding name.
func (d *StringDecoder) Name() string { return d.name }

// Decode converts s. Pure ASCII and strings that fail to decode are
// returned unchanged.
func (d *StringDecoder) Decode(s string) string {
	if d == nil || isASCII(s) {
		return s
	}
	out, err := d.enc.NewDecoder().String(s)
	if err != nil || !utf8.ValidString(out) {
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
