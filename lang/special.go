package lang

import (
	"strings"
	"time"

	"github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/pkg"
)

// specialVarNames are the names accepted after a leading dot, as in .now.
var specialVarNames = []string{
	"auto_esc",
	"current_template_name",
	"data_model",
	"error",
	"globals",
	"lang",
	"locale",
	"locals",
	"main",
	"main_template_name",
	"now",
	"output_format",
	"template_name",
	"vars",
	"version",
}

func (env *Environment) special(x *SpecialVar) (model.Value, error) {
	switch x.Name {
	case "now":
		return model.Date{T: time.Now().In(env.set.zone), Kind: model.DateTime}, nil
	case "locale":
		return model.String(strings.ReplaceAll(env.set.locale.String(), "-", "_")), nil
	case "lang":
		base, _ := env.set.locale.Base()

		return model.String(base.String()), nil
	case "output_format":
		return model.String(env.format.Name()), nil
	case "auto_esc":
		return model.Bool(env.autoEsc), nil
	case "vars":
		return varsHash{env: env}, nil
	case "globals":
		return env.globals, nil
	case "main":
		return env.main, nil
	case "locals":
		if env.frame.locals == nil {
			return nil, nil
		}

		return env.frame.locals, nil
	case "data_model":
		return env.data, nil
	case "template_name", "current_template_name", "main_template_name":
		return model.String(env.tmpl.name), nil
	case "version":
		return model.String(pkg.Version()), nil
	case "error":
		msg, ok := env.errorMessage()
		if !ok {
			return nil, env.errorf(x, ErrTemplate, ".error is only available inside <#recover>")
		}

		return model.String(msg), nil
	}

	return nil, env.errorf(x, ErrUndefinedVariable, "unknown special variable .%s", x.Name)
}

// varsHash looks up names the way identifiers do.
type varsHash struct{ env *Environment }

func (varsHash) Facets() model.Facet { return model.FacetHash }

func (h varsHash) Get(key string) (model.Value, error) { return h.env.lookup(key) }
