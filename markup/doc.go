// Package markup implements output formats and the markup values they
// produce.
//
// A [Format] knows how to escape plain text for its target language. The
// predefined formats are [HTML], [XHTML], [XML] and [RTF] (markup formats),
// [PlainText] (no escaping, no markup values) and [Undefined] (no escaping,
// prints markup of any format as is). [Combined] nests two markup formats.
//
// A [Model] carries either plain text pending escaping or trusted markup:
//
//	m, _ := markup.HTML.Concat(
//		markup.HTML.FromMarkup("<b>"),
//		markup.HTML.FromPlainTextByEscaping("a < b"),
//	)
//	s, _ := markup.HTML.MarkupString(m) // "<b>a &lt; b"
//
// Escaping of plain-text sourced models is deferred until the markup is
// first requested and then memoized.
package markup
