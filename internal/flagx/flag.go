// Package flagx lets the server config and the securefilectl subcommands
// share one os.Args: each side picks out only the flags it owns.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// ConfigFlags are the spellings of the config file flag.
var ConfigFlags = []string{"-c", "-config"}

// terminator ends flag parsing; everything after it is positional.
const terminator = "--"

// canonical maps "--name" to "-name". The flag package accepts both forms,
// so allowed lists only need the single-dash spelling.
func canonical(name string) string {
	if strings.HasPrefix(name, "--") && len(name) > 2 {
		return name[1:]
	}
	return name
}

func isFlag(arg string) bool {
	return len(arg) > 1 && arg[0] == '-'
}

// FilterArgs returns the subset of args that belongs to allowedFlags, keeping
// order. "-f value", "-f=value", "--f value" and "--f=value" are recognized.
// A separate value is taken only when the next argument is not itself a flag.
// Nothing after a bare "--" is considered.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[canonical(f)] = struct{}{}
	}

	out := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == terminator {
			break
		}
		if !isFlag(arg) {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		if _, ok := allowed[canonical(name)]; !ok {
			continue
		}
		out = append(out, arg)
		if !hasValue && i+1 < len(args) && !isFlag(args[i+1]) && args[i+1] != terminator {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath returns the file named by -c/-config (or their double-dash
// forms) in args, or "" when none is given. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to a JSON or YAML config file")
	fs.StringVar(&path, "c", "", "path to a JSON or YAML config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFlags))

	return path
}
