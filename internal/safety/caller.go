package safety

import "runtime"

// callerLocation resolves file, line, and function name skip frames above
// its own caller — the Go-native replacement for the original's
// __FILE__/__LINE__/__func__ macro trio (§9 Open Question).
func callerLocation(skip int) (file string, line int, function string) {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown", 0, "unknown"
	}
	function = "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
	}
	return file, line, function
}
