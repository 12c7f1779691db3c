package markup

import (
	"log/slog"
	"path"
	"strings"
	"sync"
)

var registry = struct {
	sync.RWMutex
	byName map[string]Format
}{
	byName: map[string]Format{},
}

func init() {
	for _, f := range []Format{HTML, XHTML, XML, RTF, PlainText, Undefined} {
		registry.byName[strings.ToLower(f.Name())] = f
	}

	registry.byName["raw"] = Undefined
	registry.byName["plain"] = PlainText
}

// Register adds a custom format, such as one returned by [Combined], so it
// can be selected by name. Registering a name again replaces the format.
func Register(f Format) {
	registry.Lock()
	defer registry.Unlock()

	registry.byName[strings.ToLower(f.Name())] = f
}

// Lookup returns the format registered under name. Matching ignores case.
func Lookup(name string) (Format, error) {
	registry.RLock()
	defer registry.RUnlock()

	if f, ok := registry.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}

	return nil, ErrUnknownFormat.With(
		slog.String("name", name),
		slog.String("known", strings.Join(Names(), ", ")),
	)
}

// Names returns the canonical names of the predefined formats.
func Names() []string {
	names := []string{}
	for _, f := range []Format{HTML, XHTML, XML, RTF, PlainText, Undefined} {
		names = append(names, f.Name())
	}

	return names
}

var extensions = map[string]Format{
	".ftlh":  HTML,
	".ftlx":  XML,
	".html":  HTML,
	".htm":   HTML,
	".xhtml": XHTML,
	".xml":   XML,
	".rtf":   RTF,
	".txt":   PlainText,
}

// ForTemplateName returns the format implied by the extension of a
// template name, or [Undefined] when the extension names none. A trailing
// ".ftl" is ignored, so "page.html.ftl" selects HTML.
func ForTemplateName(name string) Format {
	base := strings.ToLower(path.Base(name))
	if ext := path.Ext(base); ext == ".ftl" {
		base = strings.TrimSuffix(base, ext)
	}

	if f, ok := extensions[path.Ext(base)]; ok {
		return f
	}

	return Undefined
}
