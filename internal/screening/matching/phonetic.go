package matching

import "strings"

// Soundex returns a Soundex-style 4-symbol code for the name. Non-letter
// runes are ignored, so multi-word names encode as one code. An empty input
// yields the empty code.
func Soundex(s string) string {
	letters := lettersOnly(s)
	if letters == "" {
		return ""
	}

	code := []byte{letters[0]}
	prev := soundexDigit(letters[0])
	for i := 1; i < len(letters) && len(code) < 4; i++ {
		d := soundexDigit(letters[i])
		if d == 0 {
			prev = 0
			continue
		}
		if d != prev {
			code = append(code, '0'+d)
			prev = d
		}
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// soundexDegenerate reports codes that carry no consonant information and
// must never trigger a phonetic boost.
func soundexDegenerate(code string) bool {
	return len(code) < 4 || code[1:] == "000"
}

func soundexDigit(c byte) byte {
	switch c {
	case 'B', 'F', 'P', 'V':
		return 1
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return 2
	case 'D', 'T':
		return 3
	case 'L':
		return 4
	case 'M', 'N':
		return 5
	case 'R':
		return 6
	}
	return 0
}

// Metaphone returns a simplified Metaphone-style code, more discriminating
// than Soundex. Non-letter runes are ignored; an empty input yields the
// empty code.
func Metaphone(s string) string {
	word := lettersOnly(s)
	if word == "" {
		return ""
	}

	var out strings.Builder
	n := len(word)
	for i := 0; i < n; i++ {
		c := word[i]
		var prev, next, next2 byte
		if i > 0 {
			prev = word[i-1]
		}
		if i+1 < n {
			next = word[i+1]
		}
		if i+2 < n {
			next2 = word[i+2]
		}

		// Collapse doubled letters except C (as in "accept").
		if c == prev && c != 'C' {
			continue
		}

		switch c {
		case 'A', 'E', 'I', 'O', 'U':
			if i == 0 {
				out.WriteByte(c)
			}
		case 'B':
			// Silent terminal B after M ("lamb").
			if !(i == n-1 && prev == 'M') {
				out.WriteByte('B')
			}
		case 'C':
			switch {
			case next == 'H':
				out.WriteByte('X')
			case next == 'I' || next == 'E' || next == 'Y':
				if prev != 'S' {
					out.WriteByte('S')
				}
			default:
				out.WriteByte('K')
			}
		case 'D':
			if next == 'G' && (next2 == 'E' || next2 == 'I' || next2 == 'Y') {
				out.WriteByte('J')
			} else {
				out.WriteByte('T')
			}
		case 'F', 'J', 'L', 'M', 'N', 'R':
			out.WriteByte(c)
		case 'G':
			// GH and GN are treated as silent G.
			if next != 'H' && next != 'N' {
				out.WriteByte('K')
			}
		case 'H':
			if i == 0 || vowelByte(next) && !vowelByte(prev) {
				out.WriteByte('H')
			}
		case 'K':
			if prev != 'C' {
				out.WriteByte('K')
			}
		case 'P':
			if next == 'H' {
				out.WriteByte('F')
			} else {
				out.WriteByte('P')
			}
		case 'Q':
			out.WriteByte('K')
		case 'S':
			if next == 'H' || (next == 'I' && (next2 == 'O' || next2 == 'A')) {
				out.WriteByte('X')
			} else {
				out.WriteByte('S')
			}
		case 'T':
			switch {
			case next == 'I' && (next2 == 'O' || next2 == 'A'):
				out.WriteByte('X')
			case next == 'H':
				out.WriteByte('0')
			default:
				out.WriteByte('T')
			}
		case 'V':
			out.WriteByte('F')
		case 'W', 'Y':
			if vowelByte(next) {
				out.WriteByte(c)
			}
		case 'X':
			out.WriteString("KS")
		case 'Z':
			out.WriteByte('S')
		}
	}
	return out.String()
}

// lettersOnly upper-cases ASCII letters and drops everything else. Phonetic
// codes are only meaningful for Latin-script input.
func lettersOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c)
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		}
	}
	return b.String()
}

func vowelByte(c byte) bool {
	switch c {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}
