package lang

import "strings"

type pieceKind uint8

const (
	pieceText pieceKind = iota
	pieceTag
	pieceInterp
)

// piece is the part of a token group that falls on one source line.
type piece struct {
	line   int
	kind   pieceKind
	tok    int // Index of the text token
	lo, hi int // Byte range within the text token
	blank  bool
}

// stripWhitespace removes the indentation and the trailing white-space,
// line break included, of every line that holds only tags and comments.
// Lines with interpolations or non-blank text, and lines where white-space
// separates two tags, are left alone. Emptied text tokens stay in place
// with an empty value.
func stripWhitespace(toks []token) {
	pieces := linePieces(toks)
	cut := make(map[int][][2]int)

	for start := 0; start < len(pieces); {
		end := start
		for end < len(pieces) && pieces[end].line == pieces[start].line {
			end++
		}

		if line := pieces[start:end]; strippable(line) {
			for _, p := range line {
				if p.kind == pieceText {
					cut[p.tok] = append(cut[p.tok], [2]int{p.lo, p.hi})
				}
			}
		}

		start = end
	}

	for i, ranges := range cut {
		var sb strings.Builder

		last := 0
		for _, r := range ranges {
			sb.WriteString(toks[i].val[last:r[0]])
			last = r[1]
		}

		sb.WriteString(toks[i].val[last:])
		toks[i].val = sb.String()
	}
}

func strippable(line []piece) bool {
	first, last := -1, -1

	for i, p := range line {
		switch p.kind {
		case pieceInterp:
			return false
		case pieceText:
			if !p.blank {
				return false
			}
		case pieceTag:
			if first < 0 {
				first = i
			}

			last = i
		}
	}

	if first < 0 {
		return false
	}

	for _, p := range line[first:last] {
		if p.kind == pieceText {
			return false
		}
	}

	return true
}

// linePieces splits the token stream into pieces ordered by line.
func linePieces(toks []token) []piece {
	var pieces []piece

	group := func(kind pieceKind, first, last token) {
		pieces = append(pieces, piece{line: first.pos.Line, kind: kind})
		if last.end.Line != first.pos.Line {
			pieces = append(pieces, piece{line: last.end.Line, kind: kind})
		}
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]

		switch t.kind {
		case tokText:
			if t.raw {
				group(pieceInterp, t, t)

				continue
			}

			pieces = append(pieces, textPieces(i, t)...)

		case tokInterp, tokNumInterp:
			j := closing(toks, i, tokInterpEnd)
			group(pieceInterp, t, toks[j])
			i = j

		case tokDirective, tokCall:
			j := closing(toks, i, tokTagEnd, tokTagEmptyEnd)
			group(pieceTag, t, toks[j])
			i = j

		case tokDirectiveEnd, tokCallEnd, tokComment:
			group(pieceTag, t, t)
		}
	}

	return pieces
}

func closing(toks []token, i int, kinds ...tokenKind) int {
	for j := i + 1; j < len(toks); j++ {
		for _, k := range kinds {
			if toks[j].kind == k {
				return j
			}
		}
	}

	return len(toks) - 1
}

// textPieces splits a text token at its line breaks. Each piece keeps its
// trailing line break.
func textPieces(i int, t token) []piece {
	var pieces []piece

	line, lo := t.pos.Line, 0

	for lo < len(t.val) {
		hi := strings.IndexByte(t.val[lo:], '\n')
		if hi < 0 {
			hi = len(t.val)
		} else {
			hi += lo + 1
		}

		pieces = append(pieces, piece{
			line:  line,
			kind:  pieceText,
			tok:   i,
			lo:    lo,
			hi:    hi,
			blank: strings.TrimSpace(t.val[lo:hi]) == "",
		})

		line++
		lo = hi
	}

	return pieces
}
