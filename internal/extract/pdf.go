package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// NoReadableTextPDF is returned in place of text when a PDF yields nothing.
const NoReadableTextPDF = "No readable text content found in PDF"

// TJ kerning at or below this value (thousandths of an em) reads as a word gap.
const wordGapKerning = -200

var (
	reTextObject = regexp.MustCompile(`(?s)\bBT\b(.*?)\bET\b`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// ExtractPDFText scans uncompressed PDF content streams for text-showing
// operands. It is a heuristic, not a PDF parser: no xref tables, no filters.
// Output depends only on data.
func ExtractPDFText(data []byte) string {
	clean := keepPrintable(data, false)

	var fragments []string
	blocks := reTextObject.FindAllStringSubmatch(clean, -1)
	if len(blocks) > 0 {
		for _, b := range blocks {
			fragments = append(fragments, scanOperands(b[1])...)
		}
	} else {
		fragments = scanOperands(clean)
	}

	text := strings.Join(fragments, " ")
	text = reWhitespace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(keepPrintable([]byte(text), false))
	if text == "" {
		return NoReadableTextPDF
	}
	return text
}

// keepPrintable drops bytes outside printable ASCII, keeping newlines and
// optionally tabs.
func keepPrintable(data []byte, keepTab bool) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		switch {
		case c >= 0x20 && c <= 0x7e, c == '\n':
			b.WriteByte(c)
		case c == '\t' && keepTab:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// scanOperands walks s and returns decoded literal strings and arrays in
// order of appearance.
func scanOperands(s string) []string {
	var out []string
	for i := 0; i < len(s); {
		switch s[i] {
		case '(':
			raw, next, ok := readLiteral(s, i)
			if !ok {
				return out
			}
			if frag := strings.TrimSpace(decodeLiteral(raw)); frag != "" {
				out = append(out, frag)
			}
			i = next
		case '[':
			frag, next, ok := readArray(s, i)
			if !ok {
				return out
			}
			if frag = strings.TrimSpace(frag); frag != "" {
				out = append(out, frag)
			}
			i = next
		default:
			i++
		}
	}
	return out
}

// readLiteral reads a balanced literal string starting at s[start] == '('.
// It returns the raw body, the index after the closing paren, and false when
// the string is unterminated.
func readLiteral(s string, start int) (string, int, bool) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[start+1 : i], i + 1, true
			}
		}
	}
	return "", len(s), false
}

// readArray reads an array starting at s[start] == '['. Literal strings
// inside are decoded and concatenated, with a space where kerning marks a
// word gap. Arrays without literal strings yield their decoded body.
func readArray(s string, start int) (string, int, bool) {
	var (
		b       strings.Builder
		strs    int
		pending bool
	)
	for i := start + 1; i < len(s); {
		switch c := s[i]; {
		case c == ']':
			if strs == 0 {
				return decodeLiteral(s[start+1 : i]), i + 1, true
			}
			return b.String(), i + 1, true
		case c == '(':
			raw, next, ok := readLiteral(s, i)
			if !ok {
				return "", len(s), false
			}
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteString(decodeLiteral(raw))
			strs++
			i = next
		case c == '-' || c == '.' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			if n, err := strconv.ParseFloat(s[i:j], 64); err == nil && n <= wordGapKerning {
				pending = true
			}
			i = j
		default:
			i++
		}
	}
	return "", len(s), false
}

// decodeLiteral resolves \ddd octal escapes and the \( \) \\ escapes.
// Other backslash sequences are kept as written.
func decodeLiteral(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		next := raw[i+1]
		switch {
		case next == '(' || next == ')' || next == '\\':
			b.WriteByte(next)
			i++
		case i+3 < len(raw) && isOctal(raw[i+1]) && isOctal(raw[i+2]) && isOctal(raw[i+3]):
			v, _ := strconv.ParseUint(raw[i+1:i+4], 8, 16)
			b.WriteByte(byte(v & 0xff))
			i += 3
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }
