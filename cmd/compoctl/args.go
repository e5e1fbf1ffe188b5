package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// splitArgs separates argv into the arguments cobra parses and the options
// before the verb that compoctl does not know, which are forwarded to the
// orchestrator. Global flags only count before the verb. For passthrough
// verbs a "--" is inserted after the verb so that everything following it
// reaches the orchestrator untouched, flags included.
func splitArgs(flags *pflag.FlagSet, verbs, passthrough map[string]bool, argv []string) (args, forwarded []string) {
	i := 0
	for i < len(argv) {
		arg := argv[i]
		if arg == "--" || arg == "-" || !strings.HasPrefix(arg, "-") {
			break
		}
		i++

		if !knownFlag(flags, arg) {
			forwarded = append(forwarded, arg)
			// the next word is its value unless it is a verb or another flag
			if !strings.Contains(arg, "=") && i < len(argv) && !verbs[argv[i]] && !strings.HasPrefix(argv[i], "-") {
				forwarded = append(forwarded, argv[i])
				i++
			}
			continue
		}

		args = append(args, arg)
		if takesValue(flags, arg) && !strings.Contains(arg, "=") && i < len(argv) {
			args = append(args, argv[i])
			i++
		}
	}

	rest := argv[i:]
	if len(rest) == 0 || !passthrough[rest[0]] {
		return append(args, rest...), forwarded
	}
	args = append(args, rest[0], "--")
	return append(args, rest[1:]...), forwarded
}

func knownFlag(flags *pflag.FlagSet, arg string) bool {
	if strings.HasPrefix(arg, "--") {
		name, _, _ := strings.Cut(arg[2:], "=")
		return flags.Lookup(name) != nil
	}
	return flags.ShorthandLookup(arg[1:2]) != nil
}

// takesValue reports whether arg is a flag whose value is the next word
func takesValue(flags *pflag.FlagSet, arg string) bool {
	var f *pflag.Flag
	if strings.HasPrefix(arg, "--") {
		name, _, _ := strings.Cut(arg[2:], "=")
		f = flags.Lookup(name)
	} else {
		short := arg[1:]
		// -fpath carries its value inline, -qv is a group of booleans
		for j, r := range short {
			f = flags.ShorthandLookup(string(r))
			if f == nil {
				return false
			}
			if f.NoOptDefVal == "" {
				return j == len(short)-1
			}
		}
		return false
	}
	return f != nil && f.NoOptDefVal == ""
}

// rootFlags are the flags recognised before the verb, help and version
// included
func rootFlags(rootCmd *cobra.Command) *pflag.FlagSet {
	rootCmd.InitDefaultHelpFlag()
	rootCmd.InitDefaultVersionFlag()

	flags := pflag.NewFlagSet(rootCmd.Name(), pflag.ContinueOnError)
	flags.AddFlagSet(rootCmd.PersistentFlags())
	flags.AddFlagSet(rootCmd.Flags())
	return flags
}

// rootVerbs names every subcommand of rootCmd
func rootVerbs(rootCmd *cobra.Command) map[string]bool {
	verbs := map[string]bool{"help": true, "completion": true}
	for _, c := range rootCmd.Commands() {
		verbs[c.Name()] = true
		for _, alias := range c.Aliases {
			verbs[alias] = true
		}
	}
	return verbs
}
