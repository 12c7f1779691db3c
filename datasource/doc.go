// Package datasource builds template data models from files, expressions
// and SQL queries.
//
// A [Model] collects top-level variables in the order its sources are
// added; later sources replace earlier variables of the same name.
//
//   - [Model.LoadFile] decodes a YAML or JSON mapping.
//   - [Model.Assign] evaluates a "name=expression" assignment with
//     expr-lang, seeing the variables added so far.
//   - [Model.Query] binds a SQL query whose rows are listed each time the
//     template lists the variable.
//
// [Open] opens a SQLite database with the pure-Go modernc.org/sqlite
// driver.
package datasource
