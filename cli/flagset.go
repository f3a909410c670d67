package cli

import (
	"time"
)

// FlagSet is a map-backed flag set. It allows to read flags coming from a
// configuration file in the same way as the ones from the command line.
//
// - implements cli.Flags
type FlagSet map[string]interface{}

// String implements cli.Flags. It returns the string associated with the flag
// name if it is set, otherwise it returns an empty string.
func (fset FlagSet) String(name string) string {
	switch v := fset[name].(type) {
	case string:
		return v
	default:
		return ""
	}
}

// StringSlice implements cli.Flags. It returns the slice of strings associated
// with the flag name if it is set, otherwise it returns nil.
func (fset FlagSet) StringSlice(name string) []string {
	switch v := fset[name].(type) {
	case []string:
		return v
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, elem := range v {
			str, ok := elem.(string)
			if ok {
				values = append(values, str)
			}
		}

		return values
	default:
		return nil
	}
}

// Duration implements cli.Flags. It returns the duration associated with the
// flag name if it is set, otherwise it returns zero. Text values are parsed
// like "1m30s".
func (fset FlagSet) Duration(name string) time.Duration {
	switch v := fset[name].(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0
		}

		return d
	default:
		return 0
	}
}

// Path implements cli.Flags. It returns the path associated with the flag name
// if it is set, otherwise it returns an empty string.
func (fset FlagSet) Path(name string) string {
	return fset.String(name)
}

// Int implements cli.Flags. It returns the integer associated with the flag if
// it is set, otherwise it returns zero.
func (fset FlagSet) Int(name string) int {
	switch v := fset[name].(type) {
	case int:
		return v
	case float64:
		if v != float64(int(v)) {
			return 0
		}

		return int(v)
	default:
		return 0
	}
}

// Bool implements cli.Flags. It returns the boolean associated with the flag if
// it is set, otherwise it returns false.
func (fset FlagSet) Bool(name string) bool {
	switch v := fset[name].(type) {
	case bool:
		return v
	default:
		return false
	}
}

// layers reads a flag from the first layer where it has a non-zero value.
//
// - implements cli.Flags
type layers []Flags

// Overlay returns flags that read each value from the first of the given flag
// sets where it is not the zero value. It allows the command line to override
// a configuration file which itself overrides the defaults.
func Overlay(flags ...Flags) Flags {
	return layers(flags)
}

// String implements cli.Flags.
func (l layers) String(name string) string {
	for _, flags := range l {
		v := flags.String(name)
		if v != "" {
			return v
		}
	}

	return ""
}

// StringSlice implements cli.Flags.
func (l layers) StringSlice(name string) []string {
	for _, flags := range l {
		v := flags.StringSlice(name)
		if len(v) > 0 {
			return v
		}
	}

	return nil
}

// Duration implements cli.Flags.
func (l layers) Duration(name string) time.Duration {
	for _, flags := range l {
		v := flags.Duration(name)
		if v != 0 {
			return v
		}
	}

	return 0
}

// Path implements cli.Flags.
func (l layers) Path(name string) string {
	for _, flags := range l {
		v := flags.Path(name)
		if v != "" {
			return v
		}
	}

	return ""
}

// Int implements cli.Flags.
func (l layers) Int(name string) int {
	for _, flags := range l {
		v := flags.Int(name)
		if v != 0 {
			return v
		}
	}

	return 0
}

// Bool implements cli.Flags.
func (l layers) Bool(name string) bool {
	for _, flags := range l {
		if flags.Bool(name) {
			return true
		}
	}

	return false
}
