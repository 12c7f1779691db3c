package cmd

import (
	"context"

	"github.com/ardnew/ftl/cli/cmd/repl"
	"github.com/ardnew/ftl/log"
)

// Repl starts an interactive expression evaluator.
type Repl struct {
	Data `embed:""`

	Locale   string   `help:"Locale used for formatting, like en_US" placeholder:"TAG" short:"l"`
	Settings []string `help:"Assign a setting as <#setting> would" name:"setting" placeholder:"NAME=VALUE" sep:"none"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	var history string
	if ktx := kongContextFrom(ctx); ktx != nil {
		history = ktx.Model.Vars()[HistoryIdentifier]
	}

	opts, err := settingOptions(r.Locale, r.Settings)
	if err != nil {
		return err
	}

	data, closeData, err := r.load(ctx)
	if err != nil {
		return err
	}
	defer closeData()

	logger := log.Default()
	sess := repl.NewSession(data.Vars(), logger, opts...)

	return repl.Run(ctx, sess, history, logger)
}
