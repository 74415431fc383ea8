package commands

import (
	"github.com/spf13/pflag"
)

// setIfChanged copies v into dst when the named flag was given.
func setIfChanged[T any](flags *pflag.FlagSet, name string, dst *T, v T) {
	if flags.Changed(name) {
		*dst = v
	}
}
