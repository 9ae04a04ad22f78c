package vm

import (
	"bytes"
	"strings"
	"testing"
)

func runSource(t *testing.T, source string, configure func(*VM)) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	machine := New(&buf)
	if configure != nil {
		configure(machine)
	}
	fn, err := Compile(source, machine.Heap(), "<test>")
	if err != nil {
		return "", err
	}
	if err := machine.Interpret(fn); err != nil {
		return buf.String(), err
	}
	return buf.String(), nil
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := runSource(t, `print 1 + 2 * 3;`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "7\n" {
		t.Fatalf("got %q, want %q", out, "7\n")
	}
}

func TestStringConcatenation(t *testing.T) {
	out, err := runSource(t, `print "foo" + "bar";`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "foobar\n" {
		t.Fatalf("got %q", out)
	}
}

func TestVarAndScope(t *testing.T) {
	src := `
		var a = 1;
		{
			var a = 2;
			print a;
		}
		print a;
	`
	out, err := runSource(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2\n1\n" {
		t.Fatalf("got %q", out)
	}
}

func TestConstReassignmentIsCompileError(t *testing.T) {
	src := `
		const x = 1;
		x = 2;
	`
	_, err := runSource(t, src, nil)
	if err == nil {
		t.Fatalf("expected a compile error reassigning a const")
	}
	if !strings.Contains(err.Error(), "const") {
		t.Fatalf("expected error to mention const, got %v", err)
	}
}

func TestClosureCapturesUpvalue(t *testing.T) {
	src := `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`
	out, err := runSource(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "1\n2\n3\n" {
		t.Fatalf("got %q", out)
	}
}

func TestClassesMethodsAndInheritance(t *testing.T) {
	src := `
		class Animal {
			init(name) {
				this.name = name;
			}
			speak() {
				return this.name + " makes a sound";
			}
		}
		class Dog < Animal {
			speak() {
				return super.speak() + " (bark)";
			}
		}
		var d = Dog("Rex");
		print d.speak();
	`
	out, err := runSource(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Rex makes a sound (bark)\n" {
		t.Fatalf("got %q", out)
	}
}

func TestBreakAndContinue(t *testing.T) {
	src := `
		var total = 0;
		for (var i = 0; i < 10; i = i + 1) {
			if (i == 5) break;
			if (i == 2) continue;
			total = total + i;
		}
		print total;
	`
	out, err := runSource(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0+1+3+4 = 8 (2 skipped by continue, loop stops before 5)
	if out != "8\n" {
		t.Fatalf("got %q", out)
	}
}

func TestUndefinedPropertyDefaultsToNil(t *testing.T) {
	src := `
		class Box {}
		var b = Box();
		print b.missing;
	`
	out, err := runSource(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "nil\n" {
		t.Fatalf("got %q", out)
	}
}

func TestUndefinedPropertyRaisesUnderStd(t *testing.T) {
	src := `
		class Box {}
		var b = Box();
		print b.missing;
	`
	_, err := runSource(t, src, func(v *VM) { v.Std = true })
	if err == nil {
		t.Fatalf("expected a runtime error under --std")
	}
	if !strings.Contains(err.Error(), "Undefined property") {
		t.Fatalf("got %v", err)
	}
}

func TestGCStressDoesNotCorruptState(t *testing.T) {
	src := `
		class Node {
			init(value) {
				this.value = value;
				this.next = nil;
			}
		}
		var head = nil;
		for (var i = 0; i < 50; i = i + 1) {
			var n = Node(i);
			n.next = head;
			head = n;
		}
		var sum = 0;
		var cur = head;
		while (cur != nil) {
			sum = sum + cur.value;
			cur = cur.next;
		}
		print sum;
	`
	out, err := runSource(t, src, func(v *VM) { v.StressGC = true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// sum(0..49) = 1225
	if out != "1225\n" {
		t.Fatalf("got %q", out)
	}
}

func TestNativeTypeAndStr(t *testing.T) {
	src := `
		print type(1);
		print type("x");
		print type(nil);
		print str(42);
	`
	out, err := runSource(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "number\nstring\nnil\n42\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}

func TestNativeGetSetHasAttr(t *testing.T) {
	src := `
		class Box {}
		var b = Box();
		setattr(b, "x", 10);
		print hasattr(b, "x");
		print getattr(b, "x");
		delattr(b, "x");
		print hasattr(b, "x");
	`
	out, err := runSource(t, src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "true\n10\nfalse\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}
