package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openheads/headcatalog/internal/config"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running headcatalog server",
	Long: `Stop a running server by reading its PID file and sending SIGTERM.

The PID file is server.pid_file from the config, or ~/.headcatalog/server.pid.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := defaultPIDFile()
	if cfg, err := config.LoadConfigRaw(); err == nil && cfg.Server.PIDFile != "" {
		pidPath = cfg.Server.PIDFile
	}

	pid := readPIDFile(pidPath)
	if pid == 0 {
		return fmt.Errorf("no server PID file found at %s\nIs the server running?", pidPath)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidPath)
		return fmt.Errorf("invalid PID %d: %w", pid, err)
	}
	if !alive(proc) {
		os.Remove(pidPath)
		return fmt.Errorf("server process %d is not running (stale PID file removed)", pid)
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Stopping headcatalog (PID %d)...\n", pid)
	if err := requestStop(proc); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Poll for up to 10s, matching the server's shutdown timeout.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		if !alive(proc) {
			os.Remove(pidPath)
			fmt.Fprintln(stderr, "Server stopped.")
			return nil
		}
	}

	fmt.Fprintln(stderr, "Server did not stop gracefully, killing it.")
	_ = proc.Kill()
	os.Remove(pidPath)
	return nil
}

// defaultPIDFile returns ~/.headcatalog/server.pid, or a temp path without a home.
func defaultPIDFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".headcatalog", "server.pid")
	}
	return filepath.Join(os.TempDir(), "headcatalog-server.pid")
}

// writePIDFile records the current PID, creating parent directories.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// readPIDFile returns the PID stored at path, or 0 when missing or malformed.
func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
