package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRootCommandExists(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}
	if rootCmd.Use != "reconx" {
		t.Errorf("expected Use to be 'reconx', got %q", rootCmd.Use)
	}
}

func TestExecuteVersion(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	if err := Execute(); err != nil {
		t.Errorf("Execute() returned error: %v", err)
	}
}

func TestCommandTree(t *testing.T) {
	wantRoot := []string{"scan", "jobs", "export", "metrics", "version"}
	for _, name := range wantRoot {
		if !hasSubcommand(rootCmd.Commands(), name) {
			t.Errorf("%s subcommand not registered on rootCmd", name)
		}
	}

	wantScan := []string{"subdomains", "ports", "dirs"}
	for _, name := range wantScan {
		if !hasSubcommand(scanCmd.Commands(), name) {
			t.Errorf("%s subcommand not registered on scanCmd", name)
		}
	}

	wantJobs := []string{"list", "show", "findings", "pause", "resume", "cancel", "delete"}
	for _, name := range wantJobs {
		if !hasSubcommand(jobsCmd.Commands(), name) {
			t.Errorf("%s subcommand not registered on jobsCmd", name)
		}
	}
}

func hasSubcommand(cmds []*cobra.Command, name string) bool {
	for _, c := range cmds {
		if c.Name() == name {
			return true
		}
	}
	return false
}

func TestGlobalFlagDefaults(t *testing.T) {
	db, err := rootCmd.PersistentFlags().GetString("db")
	if err != nil {
		t.Fatalf("db flag: %v", err)
	}
	if db != "reconx.db" {
		t.Errorf("db default = %q, want reconx.db", db)
	}

	verbose, err := rootCmd.PersistentFlags().GetInt("verbose")
	if err != nil {
		t.Fatalf("verbose flag: %v", err)
	}
	if verbose != 0 {
		t.Errorf("verbose default = %d, want 0", verbose)
	}
}

func TestScanFlagDefaults(t *testing.T) {
	authorized, err := scanCmd.PersistentFlags().GetBool("authorized")
	if err != nil {
		t.Fatalf("authorized flag: %v", err)
	}
	if authorized {
		t.Error("authorized must default to false")
	}

	format, err := exportCmd.Flags().GetString("format")
	if err != nil {
		t.Fatalf("format flag: %v", err)
	}
	if format != "csv" {
		t.Errorf("export format default = %q, want csv", format)
	}

	// The status filter is a CLI convenience; the library default is no
	// filter, so the common set must live here.
	statuses, err := scanDirsCmd.Flags().GetString("status-include")
	if err != nil {
		t.Fatalf("status-include flag: %v", err)
	}
	if statuses != "200,204,301,302,401,403" {
		t.Errorf("status-include default = %q, want common set", statuses)
	}
}
