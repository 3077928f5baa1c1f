package filehashlist

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
)

var (
	globalVerboseLevel int
	debugFlags         map[string]bool

	logMu     sync.Mutex
	logOutput io.Writer = os.Stderr
)

// SetVerboseLevel sets the global verbose level
func SetVerboseLevel(level int) {
	globalVerboseLevel = level
}

// GetVerboseLevel returns the current verbose level
func GetVerboseLevel() int {
	return globalVerboseLevel
}

// SetLogOutput redirects diagnostic output, nil restores stderr
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
}

// logf writes one tagged diagnostic line. Hash workers log concurrently so
// each line goes out in a single write under the lock.
func logf(tag string, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	logMu.Lock()
	fmt.Fprintf(logOutput, "[%s] %s", tag, msg)
	logMu.Unlock()
}

// VerboseEnter logs function entry at level 3+ and returns a defer function for exit logging
func VerboseEnter() func() {
	if globalVerboseLevel < 3 {
		return func() {} // No-op
	}

	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return func() {}
	}

	funcName := runtime.FuncForPC(pc).Name()
	if idx := strings.LastIndex(funcName, "."); idx != -1 {
		funcName = funcName[idx+1:]
	}

	logf("TRACE", "Entering function: %s", funcName)
	return func() {
		logf("TRACE", "Exiting function: %s", funcName)
	}
}

// VerboseLog logs a message at the specified verbose level
func VerboseLog(level int, format string, args ...interface{}) {
	if globalVerboseLevel >= level {
		logf(fmt.Sprintf("VERBOSE-%d", level), format, args...)
	}
}

// LogWarning reports a per-file problem that does not stop the run
func LogWarning(format string, args ...interface{}) {
	logf("WARN", format, args...)
}

// LogError reports a failure
func LogError(format string, args ...interface{}) {
	logf("ERROR", format, args...)
}

// DebugLog logs a message when the named debug flag is enabled
func DebugLog(flag string, format string, args ...interface{}) {
	if IsDebugEnabled(flag) {
		logf(strings.ToUpper(flag), format, args...)
	}
}

// SetDebugFlags sets the debug flags from a comma-separated string
// Supports both simple flags ("scan,cache") and key:value format ("scan:true,cache:false")
func SetDebugFlags(flagsStr string) {
	debugFlags = make(map[string]bool)
	if flagsStr == "" {
		return
	}

	for _, flag := range strings.Split(flagsStr, ",") {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "false", "0", "no", "off":
				flagValue = false
			}
		}

		debugFlags[flagName] = flagValue
	}
}

// IsDebugEnabled returns true if the specified debug flag is enabled
func IsDebugEnabled(flag string) bool {
	if debugFlags == nil {
		return false
	}
	return debugFlags[strings.ToLower(flag)]
}
