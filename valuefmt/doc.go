// Package valuefmt formats numbers, dates and booleans for template output.
//
// A [Formats] value is bound to one locale and time zone. It compiles format
// strings on first use and caches the result:
//
//	f := valuefmt.New(valuefmt.WithLocale(language.German))
//	s, err := f.FormatNumber(arith.Int(1234567), "#,##0.00")
//	// s == "1.234.567,00"
//
// Number formats are the names "number", "currency", "percent" and
// "computer", decimal patterns in the style of Java's DecimalFormat, or
// "@name" references to factories registered with
// [WithCustomNumberFormat]. A pattern may carry extended parameters after
// ";;", as in "0.0;; roundingMode=halfUp groupingSeparator='_'".
//
// Date formats are "iso" and "xs" (ISO 8601 and XML Schema) optionally
// followed by the options h, m, s, ms, nz, fz, u and fu, the styles
// "short", "medium", "long" and "full" (and "date_time" pairs of them for
// date-times), or SimpleDateFormat patterns such as "yyyy-MM-dd HH:mm".
package valuefmt
