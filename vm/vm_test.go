package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/lox/object"
)

func runScript(t *testing.T, source string) string {
	t.Helper()
	var out bytes.Buffer
	machine := New(WithStdout(&out))
	require.NoError(t, machine.Interpret(source))
	return out.String()
}

func TestPrintFormats(t *testing.T) {
	out := runScript(t, `
print 1 + 2;
print 0.5;
print 100;
print "a" + "b";
print true;
print nil;
`)
	assert.Equal(t, "3\n0.5\n100\nab\ntrue\nnil\n", out)
}

func TestLogicalOperators(t *testing.T) {
	out := runScript(t, `
print nil or "x";
print false and 1;
print 1 and 2;
print "a" or 2;
print !nil;
print !0;
`)
	// Zero is truthy; only nil and false are falsey.
	assert.Equal(t, "x\nfalse\n2\na\ntrue\nfalse\n", out)
}

func TestStringEqualityByInterning(t *testing.T) {
	out := runScript(t, `print "a" + "b" == "ab";`)
	assert.Equal(t, "true\n", out)
}

func TestGlobalsAndLocals(t *testing.T) {
	out := runScript(t, `
var a = "global";
{
  var a = "local";
  print a;
}
print a;
`)
	assert.Equal(t, "local\nglobal\n", out)
}

func TestControlFlow(t *testing.T) {
	out := runScript(t, `
var sum = 0;
for (var i = 1; i <= 10; i = i + 1) {
  sum = sum + i;
}
print sum;
var n = 0;
while (n < 3) {
  n = n + 1;
}
print n;
if (sum > 50) print "big"; else print "small";
`)
	assert.Equal(t, "55\n3\nbig\n", out)
}

func TestRecursiveFibonacci(t *testing.T) {
	out := runScript(t, `
fun fib(n) {
  if (n < 2) return 1;
  return fib(n - 2) + fib(n - 1);
}
print fib(10);
`)
	assert.Equal(t, "89\n", out)
}

func TestClosureCounter(t *testing.T) {
	out := runScript(t, `
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    print i;
  }
  return count;
}
var counter = makeCounter();
counter();
counter();
counter();
`)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClosuresShareOneUpvalue(t *testing.T) {
	out := runScript(t, `
var inc;
var get;
{
  var x = 0;
  fun i() { x = x + 1; }
  fun g() { print x; }
  inc = i;
  get = g;
}
inc();
inc();
get();
`)
	assert.Equal(t, "2\n", out)
}

func TestLoopClosuresAreIndependent(t *testing.T) {
	// Each iteration's closure captures that iteration's variable.
	out := runScript(t, `
var a; var b; var c;
for (var i = 0; i < 3; i = i + 1) {
  var j = i;
  fun show() { print j; }
  if (j == 0) a = show;
  if (j == 1) b = show;
  if (j == 2) c = show;
}
a();
b();
c();
`)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestClassesAndInstances(t *testing.T) {
	out := runScript(t, `
class Point {
  init(x, y) {
    this.x = x;
    this.y = y;
  }
  sum() {
    return this.x + this.y;
  }
}
var p = Point(3, 4);
print p.sum();
print p.x;
p.x = 30;
print p.sum();
print Point;
print p;
`)
	assert.Equal(t, "7\n3\n34\nPoint\nPoint instance\n", out)
}

func TestBoundMethodKeepsReceiver(t *testing.T) {
	out := runScript(t, `
class Greeter {
  init(name) { this.name = name; }
  greet() { print this.name; }
}
var method = Greeter("world").greet;
method();
`)
	assert.Equal(t, "world\n", out)
}

func TestFieldShadowsMethodOnInvoke(t *testing.T) {
	out := runScript(t, `
class Box {
  value() { return "method"; }
}
var box = Box();
fun replacement() { return "field"; }
box.value = replacement;
print box.value();
`)
	assert.Equal(t, "field\n", out)
}

func TestInheritance(t *testing.T) {
	out := runScript(t, `
class A {
  greet() { return "A"; }
  other() { return "base"; }
}
class B < A {
  greet() { return "B" + super.greet(); }
}
var b = B();
print b.greet();
print b.other();
`)
	assert.Equal(t, "BA\nbase\n", out)
}

func TestInheritedInitializer(t *testing.T) {
	out := runScript(t, `
class A {
  init(v) { this.v = v; }
}
class B < A {}
print B(7).v;
`)
	assert.Equal(t, "7\n", out)
}

func TestInitializerReturnsReceiver(t *testing.T) {
	out := runScript(t, `
class Thing {
  init() { this.ready = true; }
}
var t = Thing();
print t.init().ready;
`)
	assert.Equal(t, "true\n", out)
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"undefined variable read", "print missing;", "undefined variable 'missing'"},
		{"undefined variable write", "missing = 1;", "undefined variable 'missing'"},
		{"add mixed types", "1 + true;", "operands must be two numbers or two strings"},
		{"subtract non-number", `1 - "x";`, "operands must be numbers"},
		{"compare non-number", `1 < "x";`, "operands must be numbers"},
		{"negate non-number", "-true;", "operand must be a number"},
		{"call non-callable", "true();", "can only call functions and classes"},
		{"arity mismatch", "fun f(a) {} f(1, 2);", "expected 1 arguments but got 2"},
		{"extra init arguments", "class A {} A(1);", "expected 0 arguments but got 1"},
		{"stack overflow", "fun f() { f(); } f();", "stack overflow"},
		{"property on number", "var x = 1; x.y;", "only instances have properties"},
		{"field on number", "var x = 1; x.y = 2;", "only instances have fields"},
		{"method on number", "var x = 1; x.y();", "only instances have methods"},
		{"undefined property", "class A {} var a = A(); a.missing();", "undefined property 'missing'"},
		{"undefined field read", "class A {} var a = A(); print a.missing;", "undefined property 'missing'"},
		{"non-class superclass", "var NotClass = 1; class B < NotClass {}", "superclass must be a class"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))
			err := machine.Interpret(tt.source)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "runtime error")
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestStackTraceOnRuntimeError(t *testing.T) {
	var diag bytes.Buffer
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&diag))
	err := machine.Interpret(`
fun inner() { return missing; }
fun outer() { return inner(); }
outer();
`)
	require.Error(t, err)
	trace := diag.String()
	assert.Contains(t, trace, "[line 2] in <fn inner>")
	assert.Contains(t, trace, "[line 3] in <fn outer>")
	assert.Contains(t, trace, "[line 4] in <script>")
}

func TestRuntimeErrorLine(t *testing.T) {
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))
	err := machine.Interpret("var a = 1;\nvar b = 2;\nprint missing;\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[line 3] runtime error: undefined variable 'missing'")
}

func TestGlobalsPersistAcrossInterprets(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithStdout(&out))
	require.NoError(t, machine.Interpret("var x = 40;"))
	require.NoError(t, machine.Interpret("fun add2(n) { return n + 2; }"))
	require.NoError(t, machine.Interpret("print add2(x);"))
	assert.Equal(t, "42\n", out.String())
}

func TestRuntimeErrorLeavesGlobalsIntact(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithStdout(&out), WithStderr(&bytes.Buffer{}))
	require.NoError(t, machine.Interpret("var x = 1;"))
	require.Error(t, machine.Interpret("print x + missing;"))
	require.NoError(t, machine.Interpret("print x;"))
	assert.Equal(t, "1\n", out.String())
}

func TestCompileErrorDoesNotResetStack(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithStdout(&out))
	require.Error(t, machine.Interpret("var 1;"))
	require.NoError(t, machine.Interpret("print 2;"))
	assert.Equal(t, "2\n", out.String())
}

func TestClockNative(t *testing.T) {
	out := runScript(t, "print clock() > 0;")
	assert.Equal(t, "true\n", out)
}

func TestCustomNative(t *testing.T) {
	var out bytes.Buffer
	machine := New(
		WithStdout(&out),
		WithNative("double", func(args []object.Value) (object.Value, error) {
			return object.NewNumber(args[0].AsNumber() * 2), nil
		}),
	)
	require.NoError(t, machine.Interpret("print double(21);"))
	assert.Equal(t, "42\n", out.String())
}

func TestNativeErrorBecomesRuntimeError(t *testing.T) {
	machine := New(
		WithStdout(&bytes.Buffer{}),
		WithStderr(&bytes.Buffer{}),
		WithNative("boom", func([]object.Value) (object.Value, error) {
			return object.Nil, errors.New("native exploded")
		}),
	)
	err := machine.Interpret("boom();")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime error")
	assert.Contains(t, err.Error(), "native exploded")
}
