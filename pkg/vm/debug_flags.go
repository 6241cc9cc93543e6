package vm

import "os"

// Debug instrumentation toggles, settable from the environment (so tests
// can flip them without a rebuild) or from cmd/smog's persistent cobra
// flags via the setters below. None of these affect language semantics;
// they only gate diagnostic output to Stderr.
var (
	debugTraceExecution = envFlag("SMOG_TRACE")
	debugPrintCode       = envFlag("SMOG_PRINT_CODE")
	debugStressGC        = envFlag("SMOG_GC_STRESS")
	debugLogGC           = envFlag("SMOG_GC_LOG")
)

func envFlag(name string) bool {
	v := os.Getenv(name)
	return v != "" && v != "0" && v != "false"
}

// SetTraceExecution enables or disables per-instruction execution tracing.
func SetTraceExecution(b bool) { debugTraceExecution = b }

// SetPrintCode enables or disables disassembly of each completed chunk.
func SetPrintCode(b bool) { debugPrintCode = b }

// SetGCStress forces a collection on every allocation when enabled.
func SetGCStress(b bool) { debugStressGC = b }

// SetGCLog enables allocate/mark/blacken/free tracing to Stderr.
func SetGCLog(b bool) { debugLogGC = b }
