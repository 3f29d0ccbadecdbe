//go:build basic || database

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// sharedEnvgapPath holds the path to a shared envgap binary built once for all tests.
	sharedEnvgapPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// countiesCSV has a gap in Bibb's copd and a missing exposure for Blount.
const countiesCSV = `fips,name,pm25,asthma,copd
01001,Autauga,7.2,9.5,8.1
01003,Baldwin,6.1,8.2,7.4
01005,Barbour,9.9,12.0,9.8
01007,Bibb,8.4,10.1,
01009,Blount,,9.0,8.6
`

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getEnvgapBinary returns the path to the envgap binary, building it once if needed.
func getEnvgapBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "envgap-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		envgapPath := filepath.Join(tempDir, "envgap")
		buildCmd := exec.Command("go", "build", "-o", envgapPath, "./cmd/envgap")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build envgap: %v\n%s", err, out))
		}

		sharedEnvgapPath = envgapPath
	})

	return sharedEnvgapPath
}

// writeCounties writes the shared dataset into a fresh temp dir.
func writeCounties(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counties.csv")
	require.NoError(t, os.WriteFile(path, []byte(countiesCSV), 0o600))
	return path
}

// runEnvgapCommand runs the binary with the given environment and returns stdout.
func runEnvgapCommand(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getEnvgapBinary(), args...)
	cmd.Dir = t.TempDir() // Keep .envgap.yaml and .env of the project out of the run
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
		return stdout.String(), err
	}
	return stdout.String(), nil
}
