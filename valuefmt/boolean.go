package valuefmt

import (
	"fmt"
	"log/slog"
	"strings"
)

// BooleanFormat renders booleans as one of two strings.
type BooleanFormat struct {
	True, False string
}

// ComputerBoolean is the format used by ?c.
var ComputerBoolean = BooleanFormat{True: "true", False: "false"}

// DefaultBooleanFormat is the initial value of the boolean_format setting.
const DefaultBooleanFormat = "true,false"

// ParseBooleanFormat parses a "yes,no" style format. "c" selects
// [ComputerBoolean].
func ParseBooleanFormat(s string) (BooleanFormat, error) {
	if s == "c" || s == "computer" {
		return ComputerBoolean, nil
	}

	t, f, ok := strings.Cut(s, ",")
	if !ok || strings.Contains(f, ",") {
		return BooleanFormat{}, ErrInvalidFormatParameters.
			Wrap(fmt.Errorf("boolean format %q must be like \"yes,no\"", s)).
			With(slog.String("format", s))
	}

	return BooleanFormat{True: t, False: f}, nil
}

// Format returns the string for b.
func (f BooleanFormat) Format(b bool) string {
	if b {
		return f.True
	}

	return f.False
}

func (f BooleanFormat) String() string { return f.True + "," + f.False }
