// Package truncate implements the algorithms behind the truncate built-ins.
//
// A truncated string never exceeds maxLength characters including its
// terminator. Character-boundary truncation ([Algorithm.TruncateC]) cuts
// anywhere, word-boundary truncation ([Algorithm.TruncateW]) cuts only
// after a whole word, and [Algorithm.Truncate] prefers a word boundary when
// it keeps at least a configured fraction of maxLength.
//
// The terminator is plain text or markup. A markup terminator promotes the
// result to markup of the terminator's output format; its length ignores
// tags and counts each character reference as one character.
//
//	s, _ := truncate.ASCII.Truncate("1234567890", 8, truncate.Terminator{})
//	// s == "123[...]"
package truncate
