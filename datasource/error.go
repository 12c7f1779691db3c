package datasource

import "github.com/ardnew/ftl/pkg"

var (
	ErrLoadData     = pkg.NewError("load data file")
	ErrNotMapping   = pkg.NewError("data file is not a mapping")
	ErrAssignment   = pkg.NewError("invalid assignment")
	ErrExpression   = pkg.NewError("evaluate expression")
	ErrOpenDatabase = pkg.NewError("open database")
	ErrQuery        = pkg.NewError("query database")
	ErrNoDatabase   = pkg.NewError("no database opened")
	ErrInvalidName  = pkg.NewError("invalid variable name")
)
