package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errEmptyToken = errors.New("empty command token")

// Directive is one parsed CLI token: a command name and an optional
// `=value` payload.
type Directive struct {
	Name     string
	Value    string
	HasValue bool
}

// ParseToken splits a `name` or `name=value` token. Names are
// case-insensitive; values are kept verbatim.
func ParseToken(tok string) (Directive, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return Directive{}, errEmptyToken
	}

	name, value, hasValue := strings.Cut(t, "=")
	name = strings.ToLower(name)
	if name == "" {
		return Directive{}, fmt.Errorf("missing command name in %q", tok)
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return Directive{}, fmt.Errorf("invalid command name %q", name)
		}
	}
	return Directive{Name: name, Value: value, HasValue: hasValue}, nil
}

// Float returns the directive's value as a decimal number.
func (d Directive) Float() (float64, error) {
	if !d.HasValue {
		return 0, fmt.Errorf("%s requires a value", d.Name)
	}
	v, err := strconv.ParseFloat(d.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", d.Name, d.Value)
	}
	return v, nil
}

// Int returns the directive's value as an integer.
func (d Directive) Int() (int, error) {
	if !d.HasValue {
		return 0, fmt.Errorf("%s requires a value", d.Name)
	}
	v, err := strconv.Atoi(d.Value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", d.Name, d.Value)
	}
	return v, nil
}
