package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvalt/reconx/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print aggregate scan and finding counters",
	RunE:  runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().Bool("json", false, "Emit the snapshot as JSON")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := metrics.NewAggregator(st).Collect(context.Background())
	if err != nil {
		return err
	}

	if asJSON {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("scans started:    %d\n", snap.StartedJobs)
	fmt.Printf("scans completed:  %d\n", snap.CompletedJobs)
	fmt.Printf("scans failed:     %d\n", snap.FailedJobs)
	fmt.Printf("findings total:   %d\n", snap.FindingsTotal)
	fmt.Printf("findings per min: %.1f\n", snap.FindingsPerMin)
	return nil
}
