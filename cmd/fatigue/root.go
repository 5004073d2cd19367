package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwhutchison/fatigue-go/internal/logging"
	"github.com/jwhutchison/fatigue-go/memaccess"
	"github.com/jwhutchison/fatigue-go/procfs"
)

var (
	flagPID         int
	flagProcessName string
	flagMethod      string
	flagDebug       bool
	flagWait        time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "fatigue",
	Short: "Inspect and patch the live memory of another process",
	Long: `fatigue finds a running process, reads its memory maps, and locates or
patches bytes inside it. It targets PE binaries running under Wine/Proton as
well as native ELF binaries.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		cmd.SetContext(logging.ContextWithLogger(cmd.Context(), logging.Default()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagPID, "pid", 0, "target process ID")
	rootCmd.PersistentFlags().StringVar(&flagProcessName, "process", "", "target process name (matched against /proc/[pid]/status)")
	rootCmd.PersistentFlags().StringVar(&flagMethod, "method", "sys", "memory access method: sys, io, or trace")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&flagWait, "wait", 0, "wait this long for --process to appear before giving up")
}

func setupLogging() {
	level := logging.ParseLevel("info")
	if flagDebug {
		level = logging.ParseLevel("debug")
	}
	logging.SetDefault(logging.NewLogger(logging.Config{Level: level}))
}

func parseMethod(name string) (memaccess.Method, error) {
	switch name {
	case "sys":
		return memaccess.Sys, nil
	case "io":
		return memaccess.IO, nil
	case "trace":
		return memaccess.Trace, nil
	default:
		return 0, fmt.Errorf("unknown access method %q (want sys, io, or trace)", name)
	}
}

// resolvePID returns the target PID from --pid, or by waiting for --process
// to appear (honoring --wait).
func resolvePID() (int, error) {
	if flagPID > 0 {
		return flagPID, nil
	}
	if flagProcessName == "" {
		return 0, fmt.Errorf("one of --pid or --process is required")
	}

	getter := func() int { return procfs.GetProcessIDByStatusName(flagProcessName) }
	if flagWait <= 0 {
		if pid := getter(); pid != 0 {
			return pid, nil
		}
		return 0, fmt.Errorf("no process found matching %q", flagProcessName)
	}

	pid := procfs.WaitForProcess(getter, flagWait, 500*time.Millisecond)
	if pid == 0 {
		return 0, fmt.Errorf("timed out waiting for process matching %q", flagProcessName)
	}
	return pid, nil
}
