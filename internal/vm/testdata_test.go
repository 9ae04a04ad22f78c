package vm

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// TestGoldenFixtures runs every internal/vm/testdata/*.txtar archive: each
// holds a lumen source file and either the stdout it must produce or a
// substring its runtime error must contain.
func TestGoldenFixtures(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.txtar")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no golden fixtures found")
	}

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			archive, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatalf("parsing %s: %v", path, err)
			}
			files := map[string]string{}
			for _, f := range archive.Files {
				files[f.Name] = string(f.Data)
			}

			source, ok := files["source.lumen"]
			if !ok {
				t.Fatalf("%s: missing source.lumen section", path)
			}

			var buf bytes.Buffer
			machine := New(&buf)
			fn, compileErr := Compile(source, machine.Heap(), path)
			if compileErr != nil {
				t.Fatalf("%s: unexpected compile error: %v", path, compileErr)
			}

			runErr := machine.Interpret(fn)

			if want, ok := files["error"]; ok {
				want = strings.TrimSpace(want)
				if runErr == nil {
					t.Fatalf("%s: expected a runtime error containing %q, got none", path, want)
				}
				if !strings.Contains(runErr.Error(), want) {
					t.Fatalf("%s: error %q does not contain %q", path, runErr.Error(), want)
				}
				return
			}

			if runErr != nil {
				t.Fatalf("%s: unexpected runtime error: %v", path, runErr)
			}
			want := files["stdout"]
			if buf.String() != want {
				t.Fatalf("%s: stdout mismatch\n got: %q\nwant: %q", path, buf.String(), want)
			}
		})
	}
}

// TestGoldenFixturesUnderStressGC re-runs every non-error fixture with
// --stress-gc and requires byte-identical stdout, per the stress-gc
// output-stability law.
func TestGoldenFixturesUnderStressGC(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.txtar")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	for _, path := range paths {
		path := path
		archive, err := txtar.ParseFile(path)
		if err != nil {
			t.Fatalf("parsing %s: %v", path, err)
		}
		files := map[string]string{}
		for _, f := range archive.Files {
			files[f.Name] = string(f.Data)
		}
		if _, isError := files["error"]; isError {
			continue
		}
		source, ok := files["source.lumen"]
		if !ok {
			continue
		}

		t.Run(filepath.Base(path), func(t *testing.T) {
			var buf bytes.Buffer
			machine := New(&buf)
			machine.StressGC = true
			fn, compileErr := Compile(source, machine.Heap(), path)
			if compileErr != nil {
				t.Fatalf("%s: unexpected compile error: %v", path, compileErr)
			}
			if err := machine.Interpret(fn); err != nil {
				t.Fatalf("%s: unexpected runtime error under --stress-gc: %v", path, err)
			}
			want := files["stdout"]
			if buf.String() != want {
				t.Fatalf("%s: stress-gc stdout mismatch\n got: %q\nwant: %q", path, buf.String(), want)
			}
		})
	}
}
