package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jwhutchison/fatigue-go/memaccess"
	"github.com/jwhutchison/fatigue-go/pattern"
	"github.com/jwhutchison/fatigue-go/procfs"
	"github.com/jwhutchison/fatigue-go/region"
)

var findPatternFlag string

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find a process, or search its memory for a byte pattern",
	Long: `With no --pattern, find just reports the resolved process's PID, status
name, and cmdline. With --pattern, it also maps the process's memory region
ending in --process (or the whole process if --pid is given directly) and
searches it for the hex pattern.`,
	Args: cobra.NoArgs,
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringVar(&findPatternFlag, "pattern", "", `hex pattern to search for, e.g. "C7 43 ?? ?? 4C"`)
}

func runFind(cmd *cobra.Command, args []string) error {
	pid, err := resolvePID()
	if err != nil {
		return err
	}

	status := procfs.GetStatusName(pid)
	cmdline := procfs.GetCmdline(pid)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "pid\t%d\n", pid)
	fmt.Fprintf(w, "status\t%s\n", status)
	fmt.Fprintf(w, "cmdline\t%s\n", cmdline)
	w.Flush()

	if findPatternFlag == "" {
		return nil
	}

	method, err := parseMethod(flagMethod)
	if err != nil {
		return err
	}
	memaccess.SetDefault(method)

	p, err := pattern.ParseHex(findPatternFlag)
	if err != nil {
		return fmt.Errorf("parsing pattern: %w", err)
	}

	var target region.Region
	if flagProcessName != "" {
		m := procfs.FindMapEndsWith(pid, flagProcessName)
		if !m.Valid() {
			return fmt.Errorf("no memory map found ending with %q for pid %d", flagProcessName, pid)
		}
		target = region.New(pid, m.Start, m.End, m.Name)
	} else {
		maps := procfs.GetValidMaps(pid)
		if len(maps) == 0 {
			return fmt.Errorf("no memory maps found for pid %d", pid)
		}
		lo, hi := maps[0].Start, maps[0].End
		for _, m := range maps[1:] {
			if m.Start < lo {
				lo = m.Start
			}
			if m.End > hi {
				hi = m.End
			}
		}
		target = region.New(pid, lo, hi, "process")
	}

	matches, err := target.Find(p, false)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d match(es) for %q in %s:\n", len(matches), findPatternFlag, target)
	for _, addr := range matches {
		fmt.Fprintf(cmd.OutOrStdout(), "  %#x\n", addr)
	}
	return nil
}
