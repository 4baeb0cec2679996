package tplengine

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// FuncMap returns the project specific template functions.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"xml":        XMLEscape,
		"javaString": JavaString,
		"propKey":    PropertiesKey,
		"propValue":  PropertiesValue,
		"javaIdent":  JavaIdentifier,
	}
}

func XMLEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

// JavaString returns s as a double quoted Java string literal. Runes outside the
// printable range become \uXXXX escapes, using surrogate pairs above the BMP. Invalid
// UTF-8 becomes \ufffd.
func JavaString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if unicode.IsPrint(r) && r != utf8.RuneError {
				b.WriteRune(r)
				continue
			}
			if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
				writeJavaUnicode(&b, r1)
				writeJavaUnicode(&b, r2)
				continue
			}
			writeJavaUnicode(&b, r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func writeJavaUnicode(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	hex := strconv.FormatInt(int64(r), 16)
	b.WriteString(strings.Repeat("0", 4-len(hex)))
	b.WriteString(hex)
}

var propertiesKeyReplacer = strings.NewReplacer(
	`\`, `\\`,
	" ", `\ `,
	"=", `\=`,
	":", `\:`,
	"#", `\#`,
	"!", `\!`,
)

// PropertiesKey escapes a key for a java .properties file.
func PropertiesKey(s string) string {
	return escapeControl(propertiesKeyReplacer.Replace(s))
}

var propertiesValueReplacer = strings.NewReplacer(`\`, `\\`)

// PropertiesValue escapes a value for a java .properties file.
func PropertiesValue(s string) string {
	out := escapeControl(propertiesValueReplacer.Replace(s))
	if strings.HasPrefix(out, " ") {
		out = `\` + out
	}
	return out
}

func escapeControl(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// JavaIdentifier turns an arbitrary string into a valid lowerCamel Java identifier.
func JavaIdentifier(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = b.Len() > 0
			continue
		}
		if b.Len() == 0 && unicode.IsDigit(r) {
			b.WriteRune('_')
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		} else if b.Len() == 0 {
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
