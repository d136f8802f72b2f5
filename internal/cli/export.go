package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvalt/reconx/internal/orchestrator"
	"github.com/nvalt/reconx/internal/report"
	"github.com/nvalt/reconx/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Export a job's findings as CSV or JSON Lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "csv", "Export format: csv or jsonl")
	exportCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	r, err := report.New(format)
	if err != nil {
		return err
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	o := orchestrator.New(st)
	defer o.Close()

	j, err := o.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	fs, err := o.Findings(context.Background(), j.ID)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := r.Write(context.Background(), store.KindForType(j.Type), fs, w); err != nil {
		return err
	}
	if outputPath != "" {
		fmt.Printf("[+] Exported %d finding(s) to %s\n", len(fs), outputPath)
	}
	return nil
}
