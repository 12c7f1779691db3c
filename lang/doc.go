// Package lang parses and renders templates.
//
// A template is static text mixed with interpolations and directives:
//
//	<#ftl output_format="HTML">
//	<h1>${title}</h1>
//	<#list users as user>
//	  <p>${user.name?cap_first}<#sep>, </#sep></p>
//	<#else>
//	  <p>No users.</p>
//	</#list>
//
// [Parse] turns source text into an immutable [Template]; [Template.Render]
// writes its output for a data model. A template may be rendered by any
// number of goroutines at once. Each rendering owns an [Environment] that
// holds its variables, settings and output format.
//
// # Syntax
//
// Directives are written <#name ...> and closed with </#name>; user-defined
// directives (macros and Go values implementing [TemplateDirective]) are
// written <@name .../>. Comments are <#-- ... -->. ${expr} interpolates a
// value, escaped for the output format when auto-escaping is on.
//
// Expressions have the usual arithmetic, comparison and logical operators,
// sequence and hash literals, ranges (1..3, 1..<3, 1..*2, 1..), member and
// index access, method calls, built-ins (x?upper_case, x?join(", ")), and
// the missing-value operators x!default and x??.
//
// # Output formats
//
// The output format of a template comes from its ftl header, the
// [WithOutputFormat] option or its file extension, in that order. Markup
// values carry their format and are printed without escaping; plain text is
// escaped when auto-escaping is on. See package markup.
//
// # Settings
//
// Options given to [Parse] are the defaults of every rendering. Options
// given to [Template.Render] override them for that rendering, and the
// <#setting> directive changes a setting for the rest of the rendering.
// [ParseTemplatePath] reads settings from a template path such as
// "page.ftlh?settings(locale='de_DE')".
//
// # Errors
//
// Malformed source fails [Parse] with a [*ParseError] matching [ErrParse].
// Rendering errors are [*TemplateError] values matching [ErrTemplate] and
// the sentinel of their cause, such as [ErrUndefinedVariable]. Errors
// inside <#attempt> are recovered by its <#recover> body.
package lang
