package cli

import "github.com/ardnew/ftl/pkg"

var (
	ErrDirectory = pkg.NewError("create runtime directory")
	ErrConfig    = pkg.NewError("read configuration file")
)
