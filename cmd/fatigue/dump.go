package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jwhutchison/fatigue-go/pattern"
	"github.com/jwhutchison/fatigue-go/region"
)

var (
	dumpAddress string
	dumpLength  int
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Read and hex-dump a range of another process's memory",
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVar(&dumpAddress, "address", "", "address to dump, as a hex literal (e.g. 0x401000)")
	dumpCmd.Flags().IntVar(&dumpLength, "length", 64, "number of bytes to dump")
	dumpCmd.MarkFlagRequired("address")
}

func runDump(cmd *cobra.Command, args []string) error {
	pid, err := resolvePID()
	if err != nil {
		return err
	}

	method, err := parseMethod(flagMethod)
	if err != nil {
		return err
	}

	var addr uint64
	if _, err := fmt.Sscanf(dumpAddress, "0x%x", &addr); err != nil {
		if _, err := fmt.Sscanf(dumpAddress, "%x", &addr); err != nil {
			return fmt.Errorf("parsing --address %q: %w", dumpAddress, err)
		}
	}
	if dumpLength <= 0 {
		return fmt.Errorf("--length must be positive")
	}

	r := region.Region{
		PID:           pid,
		Start:         uintptr(addr),
		End:           uintptr(addr) + uintptr(dumpLength),
		Name:          "dump",
		Method:        method,
		EnforceBounds: true,
	}

	buf, err := r.Snapshot()
	if err != nil {
		return fmt.Errorf("reading memory: %w", err)
	}

	rowSize := dumpRowSize()
	fmt.Fprint(cmd.OutOrStdout(), pattern.Dump(buf, rowSize, true))
	return nil
}

// dumpRowSize picks a hex-dump row width that fits the attached terminal,
// falling back to the conventional 16-byte row when stdout isn't a
// terminal (piped output, CI logs). Each row needs roughly 4 characters
// per byte (2 hex digits, a space, and an ASCII column character);
// labelWidth keeps a further 12 columns free.
func dumpRowSize() int {
	const perByte = 4
	const labelWidth = 12
	width, _, err := term.GetSize(1) // stdout
	if err != nil || width <= labelWidth+perByte {
		return 16
	}
	rows := (width - labelWidth) / perByte
	switch {
	case rows >= 32:
		return 32
	case rows >= 16:
		return 16
	case rows >= 8:
		return 8
	default:
		return 4
	}
}
