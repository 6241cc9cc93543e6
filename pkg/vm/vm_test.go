package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/smog/pkg/vm"
)

func run(t *testing.T, src string) (string, vm.InterpretResult, error) {
	t.Helper()
	m := vm.New()
	var out bytes.Buffer
	m.Stdout = &out
	m.Stderr = &out
	result, err := m.Interpret(src)
	return out.String(), result, err
}

func TestArithmeticPrecedence(t *testing.T) {
	out, result, err := run(t, "print 1 + 2 * 3 - 4 / 2;")
	require.NoError(t, err)
	assert.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "5\n", out)
}

func TestStringConcatenationRequiresBothOperandsToBeStrings(t *testing.T) {
	_, result, err := run(t, `print "count: " + 3;`)
	require.Error(t, err)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	assert.Contains(t, err.Error(), "Operands must be two numbers or two strings.")
}

func TestStringConcatenationOfTwoStrings(t *testing.T) {
	out, result, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "foobar\n", out)
}

func TestGlobalAndLocalVariables(t *testing.T) {
	out, _, err := run(t, `
		var a = 10;
		{
			var a = 20;
			print a;
		}
		print a;
	`)
	require.NoError(t, err)
	assert.Equal(t, "20\n10\n", out)
}

func TestControlFlowSum(t *testing.T) {
	out, _, err := run(t, `
		var total = 0;
		var i = 0;
		while (i < 5) {
			total = total + i;
			i = i + 1;
		}
		print total;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestForLoopWithBreakAndContinue(t *testing.T) {
	out, _, err := run(t, `
		var total = 0;
		for (var i = 0; i < 10; i = i + 1) {
			if (i == 5) break;
			if (i == 2) continue;
			total = total + i;
		}
		print total;
	`)
	require.NoError(t, err)
	assert.Equal(t, "8\n", out) // 0+1+3+4
}

func TestClosureCapturesByReference(t *testing.T) {
	out, _, err := run(t, `
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
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClassInstanceFieldsAndMethods(t *testing.T) {
	out, _, err := run(t, `
		class Counter {
			init(start) {
				this.value = start;
			}
			increment() {
				this.value = this.value + 1;
				return this.value;
			}
		}
		var c = Counter(10);
		print c.increment();
		print c.value;
	`)
	require.NoError(t, err)
	assert.Equal(t, "11\n11\n", out)
}

func TestStringInterningMakesEqualityPointerIdentity(t *testing.T) {
	out, _, err := run(t, `
		var a = "hello";
		var b = "hel" + "lo";
		print a == b;
	`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, result, err := run(t, "print nope;")
	assert.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable")
}

func TestTypeErrorOnArithmeticReportsStackTrace(t *testing.T) {
	_, result, err := run(t, `
		fun bad() {
			return "x" - 1;
		}
		bad();
	`)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operands must be numbers.")
	assert.True(t, strings.Contains(err.Error(), "in bad()"))
}

func TestVMIsReusableAfterRuntimeError(t *testing.T) {
	m := vm.New()
	var out bytes.Buffer
	m.Stdout = &out

	_, err := m.Interpret("print nope;")
	require.Error(t, err)

	out.Reset()
	result, err := m.Interpret(`print 1 + 1;`)
	require.NoError(t, err)
	assert.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "2\n", out.String())
}

func TestCompileErrorDoesNotRun(t *testing.T) {
	_, result, err := run(t, "var = 1;")
	assert.Equal(t, vm.InterpretCompileError, result)
	require.Error(t, err)
}

func TestTooManyLocalsIsCompileError(t *testing.T) {
	var b strings.Builder
	b.WriteString("{\n")
	for i := 0; i < 257; i++ {
		b.WriteString("var v")
		b.WriteString(itoa(i))
		b.WriteString(" = 0;\n")
	}
	b.WriteString("}\n")
	_, result, err := run(t, b.String())
	assert.Equal(t, vm.InterpretCompileError, result)
	require.Error(t, err)
}

func TestDeeplyRecursiveCallOverflowsStack(t *testing.T) {
	_, result, err := run(t, `
		fun recurse() {
			return recurse();
		}
		recurse();
	`)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stack overflow.")
}

func TestNativeClockReturnsNumber(t *testing.T) {
	out, _, err := run(t, `
		var t = clock();
		print t >= 0;
	`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
