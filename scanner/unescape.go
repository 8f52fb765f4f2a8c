package scanner

import (
	"unicode/utf16"
	"unicode/utf8"
)

var replacer = [256]byte{
	'"':  '"',
	'\\': '\\',
	'/':  '/',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
}

// appendUnescaped appends the decoded form of a string body whose escape
// sequences were already validated by the Tokenizer. Unpaired surrogates
// decode to utf8.RuneError.
func appendUnescaped(dst, src []byte) []byte {
	for i := 0; i < len(src); {
		c := src[i]
		if c != '\\' {
			dst = append(dst, c)
			i++
			continue
		}

		esc := src[i+1]
		if esc != 'u' {
			dst = append(dst, replacer[esc])
			i += 2
			continue
		}

		one := hexRune(src[i+2 : i+6])
		i += 6
		if utf16.IsSurrogate(one) {
			if i+6 <= len(src) && src[i] == '\\' && src[i+1] == 'u' {
				if run := utf16.DecodeRune(one, hexRune(src[i+2:i+6])); run != utf8.RuneError {
					dst = utf8.AppendRune(dst, run)
					i += 6
					continue
				}
			}
			one = utf8.RuneError
		}
		dst = utf8.AppendRune(dst, one)
	}

	return dst
}

func hexRune(b []byte) rune {
	var run rune
	for _, c := range b {
		switch {
		case '0' <= c && c <= '9':
			c -= '0'
		case 'a' <= c && c <= 'f':
			c = c - 'a' + 10
		default:
			c = c - 'A' + 10
		}
		run = run<<4 | rune(c)
	}

	return run
}
