package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/orchestrator"
	"github.com/nvalt/reconx/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and control scan jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all jobs, newest first",
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job's state, progress, and config",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsFindingsCmd = &cobra.Command{
	Use:   "findings <job-id>",
	Short: "Print a job's findings in discovery order",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsFindings,
}

var jobsPauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Pause a running job",
	Args:  cobra.ExactArgs(1),
	RunE:  controlAction((*orchestrator.Orchestrator).Pause, "paused"),
}

var jobsResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume a paused job",
	Args:  cobra.ExactArgs(1),
	RunE:  controlAction((*orchestrator.Orchestrator).Resume, "resumed"),
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running or paused job, keeping its findings",
	Args:  cobra.ExactArgs(1),
	RunE:  controlAction((*orchestrator.Orchestrator).Cancel, "cancelled"),
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job and all of its findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsDelete,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsFindingsCmd,
		jobsPauseCmd, jobsResumeCmd, jobsCancelCmd, jobsDeleteCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	o := orchestrator.New(st)
	defer o.Close()

	jobs, err := o.List(context.Background())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("[*] No jobs recorded")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-9s  %8s  %s\n", "ID", "TYPE", "STATE", "PROGRESS", "CREATED")
	for _, j := range jobs {
		fmt.Printf("%-36s  %-10s  %-9s  %7.0f%%  %s\n",
			j.ID, j.Type, j.State, j.Progress, j.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
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

	out, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runJobsFindings(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	o := orchestrator.New(st)
	defer o.Close()

	fs, err := o.Findings(context.Background(), args[0])
	if err != nil {
		return err
	}
	if len(fs) == 0 {
		fmt.Println("[*] No findings recorded")
		return nil
	}
	for _, f := range fs {
		fmt.Println(findingLine(f))
	}
	fmt.Printf("[+] %d finding(s)\n", len(fs))
	return nil
}

// findingLine renders one finding as a single human-readable line.
func findingLine(f *store.Finding) string {
	switch f.Kind {
	case store.KindSubdomain:
		return fmt.Sprintf("%-40s %s", f.Subdomain.Subdomain, strings.Join(f.Subdomain.ResolvedIPs, ", "))
	case store.KindPort:
		line := fmt.Sprintf("%s:%-6d %-9s", f.Port.Target, f.Port.Port, f.Port.Status)
		if f.Port.Banner != "" {
			line += " " + f.Port.Banner
		}
		return line
	case store.KindDir:
		line := fmt.Sprintf("%-60s %d  %6d bytes", f.Dir.URL, f.Dir.Status, f.Dir.Length)
		if f.Dir.RedirectedTo != "" {
			line += " -> " + f.Dir.RedirectedTo
		}
		if f.Dir.Title != "" {
			line += fmt.Sprintf("  [%s]", f.Dir.Title)
		}
		return line
	}
	return f.ID
}

// controlAction builds a RunE for pause/resume/cancel, which all share the
// same shape: look up the job, apply the transition, report the new state.
func controlAction(fn func(*orchestrator.Orchestrator, context.Context, string) (*job.Job, error), verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		o := orchestrator.New(st)
		defer o.Close()

		j, err := fn(o, context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("[+] Job %s %s (state: %s, progress: %.0f%%)\n", j.ID, verb, j.State, j.Progress)
		return nil
	}
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	o := orchestrator.New(st)
	defer o.Close()

	if err := o.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("[+] Job %s deleted\n", args[0])
	return nil
}
