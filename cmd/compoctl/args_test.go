package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("compoctl", pflag.ContinueOnError)
	flags.StringArrayP("file", "f", nil, "")
	flags.StringP("project-name", "p", "", "")
	flags.String("project-directory", "", "")
	flags.BoolP("quiet", "q", false, "")
	flags.BoolP("verbose", "v", false, "")
	flags.BoolP("help", "h", false, "")
	return flags
}

func TestSplitArgs(t *testing.T) {
	passthrough := map[string]bool{"exec": true, "logs": true, "up": true, "ps": true}
	verbs := map[string]bool{"exec": true, "logs": true, "up": true, "ps": true, "backup": true, "apply": true}

	tests := []struct {
		name      string
		in        []string
		want      []string
		forwarded []string
	}{
		{
			name: "passthrough gets separator",
			in:   []string{"-f", "a.yml", "exec", "web", "sh", "-c", "ls -f"},
			want: []string{"-f", "a.yml", "exec", "--", "web", "sh", "-c", "ls -f"},
		},
		{
			name: "flags after verb belong to the orchestrator",
			in:   []string{"logs", "-f", "web"},
			want: []string{"logs", "--", "-f", "web"},
		},
		{
			name: "inline values and bool groups",
			in:   []string{"--file=a.yml", "-qv", "-pshop", "up", "-d"},
			want: []string{"--file=a.yml", "-qv", "-pshop", "up", "--", "-d"},
		},
		{
			name: "own verbs are left alone",
			in:   []string{"-f", "a.yml", "backup", "--archive"},
			want: []string{"-f", "a.yml", "backup", "--archive"},
		},
		{
			name: "flag value looking like a verb",
			in:   []string{"--project-directory", "exec", "ps"},
			want: []string{"--project-directory", "exec", "ps", "--"},
		},
		{
			name: "no verb",
			in:   []string{"-q"},
			want: []string{"-q"},
		},
		{
			name: "explicit separator",
			in:   []string{"--", "exec"},
			want: []string{"--", "exec"},
		},
		{
			name:      "unknown option with value is forwarded",
			in:        []string{"--env-file", "prod.env", "-q", "up", "-d"},
			want:      []string{"-q", "up", "--", "-d"},
			forwarded: []string{"--env-file", "prod.env"},
		},
		{
			name:      "unknown option before a verb takes no value",
			in:        []string{"--compatibility", "apply"},
			want:      []string{"apply"},
			forwarded: []string{"--compatibility"},
		},
		{
			name:      "unknown inline and short options",
			in:        []string{"--profile=debug", "-x", "--no-ansi", "ps"},
			want:      []string{"ps", "--"},
			forwarded: []string{"--profile=debug", "-x", "--no-ansi"},
		},
		{
			name: "help stays with cobra",
			in:   []string{"-h"},
			want: []string{"-h"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, forwarded := splitArgs(testFlags(), verbs, passthrough, tt.in)
			assert.Equal(t, tt.want, args)
			assert.Equal(t, tt.forwarded, forwarded)
		})
	}
}
