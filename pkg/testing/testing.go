package testing

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path"
	"runtime"
)

// kept in sync with common.EnvKeyLogDir; importing common here would create
// an import cycle for common's own tests
const envKeyLogDir = "LOG_DIR"

// ProjectRoot is the repository root, resolved from this file's location.
var ProjectRoot string

func init() {
	// test logs from every package end up in <root>/logs instead of one
	// logs dir per package directory
	//
	//   in some_test.go,
	//   import (
	//     _ "liyu1981.xyz/wfdb-catalog/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)
	ProjectRoot = path.Join(path.Dir(filename), "..", "..")

	if _, found := os.LookupEnv(envKeyLogDir); !found {
		if err := os.Setenv(envKeyLogDir, path.Join(ProjectRoot, "logs")); err != nil {
			panic(err)
		}
	}
}

// ParseLogs decodes the JSON lines written by a capture logger, skipping
// anything that is not JSON.
func ParseLogs(r io.Reader) []map[string]any {
	scanner := bufio.NewScanner(r)
	var logs []map[string]any

	for scanner.Scan() {
		var j map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
