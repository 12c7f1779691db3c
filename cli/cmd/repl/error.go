package repl

import "github.com/ardnew/ftl/pkg"

var (
	ErrOutOfBounds  = pkg.NewError("index out of range")
	ErrEditDeclined = pkg.NewError("decline edit")
	ErrInvalidName  = pkg.NewError("invalid variable name")
)
