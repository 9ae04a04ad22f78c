// Package config holds lumen's process-wide run flags and the
// optional lumen.yaml project file that can supply their defaults.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Flags is the resolved set of run-time switches the CLI driver reads
// before compiling and running a program. Command-line flags always
// win over lumen.yaml defaults, which in turn win over these
// zero-value defaults.
type Flags struct {
	Std            bool `yaml:"std"`
	StressGC       bool `yaml:"stress_gc"`
	LogGC          bool `yaml:"log_gc"`
	TraceExecution bool `yaml:"trace_execution"`
	PrintCode      bool `yaml:"print_code"`
}

// ProjectFile is the shape of lumen.yaml: a `flags:` block supplying
// defaults for any Flags field the CLI invocation doesn't set
// explicitly.
type ProjectFile struct {
	Flags Flags `yaml:"flags"`
}

// Load reads lumen.yaml from dir if present, returning zero-value
// defaults (no error) when the file doesn't exist.
func Load(dir string) (ProjectFile, error) {
	path := dir + "/lumen.yaml"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectFile{}, nil
		}
		return ProjectFile{}, err
	}
	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return ProjectFile{}, err
	}
	return pf, nil
}

// Merge overlays project defaults under whatever flags were set
// explicitly on the command line, tracked via the `set` map (flag
// name -> true if the CLI invocation passed it).
func Merge(cli Flags, set map[string]bool, project Flags) Flags {
	result := cli
	if !set["std"] {
		result.Std = project.Std
	}
	if !set["stress-gc"] {
		result.StressGC = project.StressGC
	}
	if !set["log-gc"] {
		result.LogGC = project.LogGC
	}
	if !set["trace-execution"] {
		result.TraceExecution = project.TraceExecution
	}
	if !set["print-code"] {
		result.PrintCode = project.PrintCode
	}
	return result
}
