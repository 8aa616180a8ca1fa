package providers

import (
	"os"
	"runtime"
)

// SharedLibraryPathEnv overrides the platform default ONNX Runtime library path.
const SharedLibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// SharedLibraryPath resolves the ONNX Runtime shared library to load.
//
// An explicit path wins, then SharedLibraryPathEnv, then the platform default
// under ./third_party.
//
// Arguments:
//   - explicit: A caller supplied path, or "".
//
// Returns:
//   - string: The path to the shared library.
func SharedLibraryPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(SharedLibraryPathEnv); env != "" {
		return env
	}
	return defaultSharedLibraryPath(runtime.GOOS, runtime.GOARCH)
}

func defaultSharedLibraryPath(goos, goarch string) string {
	switch goos {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
