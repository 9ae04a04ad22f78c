package vm

import (
	"strings"
	"testing"
)

func compileErr(t *testing.T, source string) *CompileErrors {
	t.Helper()
	heap := NewHeap()
	_, err := Compile(source, heap, "<test>")
	if err == nil {
		t.Fatalf("expected a compile error for:\n%s", source)
	}
	ce, ok := err.(*CompileErrors)
	if !ok {
		t.Fatalf("expected *CompileErrors, got %T", err)
	}
	return ce
}

func TestCompileDuplicateLocalInSameScope(t *testing.T) {
	ce := compileErr(t, `{ var a = 1; var a = 2; }`)
	if !strings.Contains(ce.Error(), "Already a variable") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	ce := compileErr(t, `break;`)
	if !strings.Contains(ce.Error(), "break") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileContinueOutsideLoopIsError(t *testing.T) {
	ce := compileErr(t, `continue;`)
	if !strings.Contains(ce.Error(), "continue") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileReturnValueFromInitializerIsError(t *testing.T) {
	ce := compileErr(t, `
		class Box {
			init() {
				return 1;
			}
		}
	`)
	if !strings.Contains(ce.Error(), "init") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileTopLevelReturnIsError(t *testing.T) {
	ce := compileErr(t, `return 1;`)
	if !strings.Contains(ce.Error(), "return") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileSuperOutsideClassIsError(t *testing.T) {
	ce := compileErr(t, `
		fun f() {
			print super.speak();
		}
	`)
	if !strings.Contains(ce.Error(), "super") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileSuperWithoutSuperclassIsError(t *testing.T) {
	ce := compileErr(t, `
		class Box {
			speak() {
				print super.speak();
			}
		}
	`)
	if !strings.Contains(ce.Error(), "super") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileClassInheritingFromItselfIsError(t *testing.T) {
	ce := compileErr(t, `class Box < Box {}`)
	if !strings.Contains(ce.Error(), "inherit from itself") {
		t.Fatalf("got %v", ce.Error())
	}
}

func TestCompileAggregatesMultipleErrorsInPanicMode(t *testing.T) {
	ce := compileErr(t, `
		break;
		continue;
	`)
	if len(ce.Errors) < 2 {
		t.Fatalf("expected panic-mode recovery to collect both errors, got %d: %v", len(ce.Errors), ce.Errors)
	}
}

func TestCompileReadingLocalInItsOwnInitializerIsError(t *testing.T) {
	ce := compileErr(t, `{ var a = a; }`)
	if !strings.Contains(ce.Error(), "own initializer") {
		t.Fatalf("got %v", ce.Error())
	}
}
