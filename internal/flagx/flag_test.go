package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// serverSide mirrors the short flags the server config reads.
var serverSide = []string{"-a", "-d", "-m", "-t", "-l", "-o", "-z"}

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "securefilectl argv keeps only server flags",
			args:    []string{"reencrypt", "--batch", "5", "-d", "postgres://x", "-c", "x.yaml", "--dry-run"},
			allowed: serverSide,
			want:    []string{"-d", "postgres://x"},
		},
		{
			name:    "config flag picked out of a subcommand argv",
			args:    []string{"reencrypt", "--batch", "5", "-d", "dsn", "-c", "x.yaml"},
			allowed: ConfigFlags,
			want:    []string{"-c", "x.yaml"},
		},
		{
			name:    "double dash spelling matches single dash entry",
			args:    []string{"--config", "a.yml", "--m=badger"},
			allowed: append([]string{"-m"}, ConfigFlags...),
			want:    []string{"--config", "a.yml", "--m=badger"},
		},
		{
			name:    "equals form never consumes the next arg",
			args:    []string{"-t=500ms", "reencrypt"},
			allowed: serverSide,
			want:    []string{"-t=500ms"},
		},
		{
			name:    "value is not taken from a following flag",
			args:    []string{"-o", "--dry-run", "-z", "2048"},
			allowed: serverSide,
			want:    []string{"-o", "-z", "2048"},
		},
		{
			name:    "arguments after terminator are ignored",
			args:    []string{"-a", ":9000", "--", "-d", "ignored"},
			allowed: serverSide,
			want:    []string{"-a", ":9000"},
		},
		{
			name:    "terminator is not taken as a value",
			args:    []string{"-l", "--", "data"},
			allowed: serverSide,
			want:    []string{"-l"},
		},
		{
			name:    "lone dash is positional",
			args:    []string{"-", "-a", ":1"},
			allowed: serverSide,
			want:    []string{"-a", ":1"},
		},
		{
			name:    "repeated flags keep their order",
			args:    []string{"-m", "s3", "--id", "x", "-m", "gateway"},
			allowed: serverSide,
			want:    []string{"-m", "s3", "-m", "gateway"},
		},
		{
			name:    "nothing to keep",
			args:    []string{"token", "--user", "u1"},
			allowed: serverSide,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/etc/securefiles.yaml"}, "/etc/securefiles.yaml"},
		{"long", []string{"-config", "conf.json"}, "conf.json"},
		{"double dash alias", []string{"--config", "conf.yml"}, "conf.yml"},
		{"double dash with equals", []string{"--config=conf.yml"}, "conf.yml"},
		{"inside a subcommand argv", []string{"reencrypt", "--dry-run", "-c", "x.yaml", "--batch", "5"}, "x.yaml"},
		{"last one wins", []string{"-c", "one.json", "--config", "two.yaml"}, "two.yaml"},
		{"absent", []string{"migrate", "-d", "dsn"}, ""},
		{"missing value", []string{"-c"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}
