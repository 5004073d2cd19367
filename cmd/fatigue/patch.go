package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwhutchison/fatigue-go/internal/logging"
	"github.com/jwhutchison/fatigue-go/memaccess"
	"github.com/jwhutchison/fatigue-go/patch"
	"github.com/jwhutchison/fatigue-go/pattern"
	"github.com/jwhutchison/fatigue-go/pefmt"
	"github.com/jwhutchison/fatigue-go/procfs"
	"github.com/jwhutchison/fatigue-go/region"
)

var (
	patchSection     string
	patchPatternFlag string
	patchOffset      int64
	patchBytesFlag   string
	patchRestore     bool
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Locate a byte pattern in a PE section and apply or restore a patch",
	Long: `patch attaches to the target process, finds the module matching --process,
reads its PE headers, locates --section (default .text), searches it for
--pattern, and applies --bytes at the match address plus --offset. Pass
--restore to undo a previously applied patch instead.`,
	Args: cobra.NoArgs,
	RunE: runPatch,
}

func init() {
	rootCmd.AddCommand(patchCmd)
	patchCmd.Flags().StringVar(&patchSection, "section", ".text", "PE section to search within")
	patchCmd.Flags().StringVar(&patchPatternFlag, "pattern", "", `hex pattern to search for, e.g. "C6 86 ?? ?? 00 00"`)
	patchCmd.Flags().Int64Var(&patchOffset, "offset", 0, "constant byte offset from the pattern match to the patch address")
	patchCmd.Flags().StringVar(&patchBytesFlag, "bytes", "", "replacement bytes as hex, e.g. \"00\"")
	patchCmd.Flags().BoolVar(&patchRestore, "restore", false, "restore the original bytes instead of applying the patch")
	patchCmd.MarkFlagRequired("pattern")
	patchCmd.MarkFlagRequired("bytes")
}

func runPatch(cmd *cobra.Command, args []string) error {
	if flagProcessName == "" {
		return fmt.Errorf("--process is required to locate the module's PE headers")
	}

	pid, err := resolvePID()
	if err != nil {
		return err
	}

	if !procfs.Attach(pid) {
		return fmt.Errorf("failed to attach to pid %d", pid)
	}
	defer procfs.Detach(pid)

	m := procfs.FindMapEndsWith(pid, flagProcessName)
	if !m.Valid() {
		return fmt.Errorf("no memory map found ending with %q for pid %d", flagProcessName, pid)
	}
	base := region.New(pid, m.Start, m.End, m.Name)
	base.Method = memaccess.IO

	img, err := pefmt.New(base)
	if err != nil {
		return fmt.Errorf("reading PE headers: %w", err)
	}

	section, err := img.GetSection(patchSection)
	if err != nil {
		return fmt.Errorf("finding section %q: %w", patchSection, err)
	}
	section.Region.Method = memaccess.IO

	// find/backup/apply each touch the section's memory separately; reuse
	// one /proc/[pid]/mem descriptor across them instead of reopening it
	// per call.
	var batch memaccess.IOBatch
	if err := batch.Start(pid); err != nil {
		return fmt.Errorf("opening memory batch: %w", err)
	}
	defer batch.Stop()
	section.Region.UseBatch(&batch)

	fmt.Fprintf(cmd.OutOrStdout(), "section %s: %s\n", section.Name, section.Region)

	pat, err := pattern.ParseHex(patchPatternFlag)
	if err != nil {
		return fmt.Errorf("parsing pattern: %w", err)
	}
	repl, err := pattern.FromHex(patchBytesFlag)
	if err != nil {
		return fmt.Errorf("parsing replacement bytes: %w", err)
	}

	p := patch.NewPattern(section.Region, pat, patchOffset, repl)
	if !p.Found() {
		return fmt.Errorf("pattern not found in section %s", section.Name)
	}
	logger := logging.WithAddress(logging.WithPID(logging.FromContext(cmd.Context()), pid), p.Address())
	logger.Info("patch located", "matches", len(p.Matches()))

	if patchRestore {
		if err := p.Restore(); err != nil {
			return fmt.Errorf("restoring patch: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored original bytes at %#x\n", p.Address())
		return nil
	}

	if err := p.Apply(); err != nil {
		return fmt.Errorf("applying patch: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied patch at %#x (state: %s)\n", p.Address(), p.State())
	return nil
}
