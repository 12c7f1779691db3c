package truncate

// lengthWithoutTags counts the visible characters of HTML or XML markup.
// Tags and comments count as nothing, each character reference counts as
// one, and CDATA sections count their content.
func lengthWithoutTags(markup string) int {
	s := []rune(markup)
	n := len(s)
	count := 0

	for i := 0; i < n; {
		c := s[i]
		i++

		switch c {
		case '<':
			switch {
			case hasPrefixAt(s, i, "!--"):
				i += 3
				for i+2 < n && !(s[i] == '-' && s[i+1] == '-' && s[i+2] == '>') {
					i++
				}

				i += 3
			case hasPrefixAt(s, i, "![CDATA["):
				i += 8
				for i < n && !(s[i] == ']' && i+2 < n && s[i+1] == ']' && s[i+2] == '>') {
					count++
					i++
				}

				i += 3
			default:
				for i < n && s[i] != '>' {
					i++
				}

				i++
			}
		case '&':
			for i < n && s[i] != ';' {
				i++
			}

			i++
			count++
		default:
			count++
		}
	}

	return count
}

// startsWithDot reports whether the first visible character of HTML or XML
// markup is a dot or an ellipsis, including as a character reference.
func startsWithDot(markup string) bool {
	s := []rune(markup)
	n := len(s)

	for i := 0; i < n; {
		c := s[i]
		i++

		switch c {
		case '<':
			switch {
			case hasPrefixAt(s, i, "!--"):
				i += 3
				for i+2 < n && !(s[i] == '-' && s[i+1] == '-' && s[i+2] == '>') {
					i++
				}

				i += 3
			case hasPrefixAt(s, i, "![CDATA["):
				i += 8
				if i < n && !(s[i] == ']' && i+2 < n && s[i+1] == ']' && s[i+2] == '>') {
					return isDot(s[i])
				}

				i += 3
			default:
				for i < n && s[i] != '>' {
					i++
				}

				i++
			}
		case '&':
			start := i
			for i < n && s[i] != ';' {
				i++
			}

			return isDotCharReference(string(s[start:i]))
		default:
			return isDot(c)
		}
	}

	return false
}

func hasPrefixAt(s []rune, i int, prefix string) bool {
	for _, r := range prefix {
		if i >= len(s) || s[i] != r {
			return false
		}

		i++
	}

	return true
}

// isDotCharReference reports whether the name of a character reference
// (without '&' and ';') denotes a period or a horizontal ellipsis.
func isDotCharReference(name string) bool {
	if len(name) > 2 && name[0] == '#' {
		code := numericCharReferenceCode(name)

		return code == 0x2026 || code == 0x2e
	}

	return name == "hellip" || name == "period"
}

// numericCharReferenceCode decodes "#123" and "#x7B" style reference names.
// It returns -1 for malformed names.
func numericCharReferenceCode(name string) int {
	if len(name) < 2 {
		return -1
	}

	hex := name[1] == 'x' || name[1] == 'X'
	pos, base := 1, 10

	if hex {
		pos, base = 2, 16
	}

	code := 0

	for ; pos < len(name); pos++ {
		c := name[pos]
		code *= base

		switch {
		case c >= '0' && c <= '9':
			code += int(c - '0')
		case hex && c >= 'a' && c <= 'f':
			code += int(c-'a') + 10
		case hex && c >= 'A' && c <= 'F':
			code += int(c-'A') + 10
		default:
			return -1
		}
	}

	return code
}
