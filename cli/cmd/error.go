package cmd

import "github.com/ardnew/ftl/pkg"

var (
	ErrReadTemplate = pkg.NewError("read template")
	ErrWriteOutput  = pkg.NewError("write output")
	ErrWatch        = pkg.NewError("watch files")
	ErrNoDatabase   = pkg.NewError("--sql requires --db")
	ErrFormat       = pkg.NewError("format template")
	ErrYAMLMarshal  = pkg.NewError("marshal YAML")
	ErrWriteConfig  = pkg.NewError("write configuration file")
	ErrFileExists   = pkg.NewError("file exists (use --force to overwrite)")
)
