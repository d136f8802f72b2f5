package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvalt/reconx/internal/config"
	"github.com/nvalt/reconx/internal/job"
	"github.com/nvalt/reconx/internal/orchestrator"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Start a scan job and wait for it to finish",
}

var scanSubdomainsCmd = &cobra.Command{
	Use:   "subdomains",
	Short: "Enumerate subdomains of a domain via DNS",
	RunE:  runScanSubdomains,
}

var scanPortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Probe TCP ports on hosts, IPs, or CIDR ranges",
	RunE:  runScanPorts,
}

var scanDirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "Brute-force paths under a base URL",
	RunE:  runScanDirs,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanSubdomainsCmd, scanPortsCmd, scanDirsCmd)

	scanCmd.PersistentFlags().Bool("authorized", false, "Confirm you are authorized to scan the target")
	scanCmd.PersistentFlags().Int("concurrency", 0, "Number of concurrent workers (0 = engine default)")
	scanCmd.PersistentFlags().Duration("timeout", 0, "Per-probe timeout (0 = engine default)")

	scanSubdomainsCmd.Flags().String("domain", "", "Target domain (e.g., example.com)")
	scanSubdomainsCmd.Flags().String("resolvers", "", "DNS resolvers to query (comma-separated IP or IP:port)")
	scanSubdomainsCmd.Flags().String("wordlist-file", "", "Wordlist file (one entry per line, # comments)")

	scanPortsCmd.Flags().String("targets", "", "Targets: hosts, IPs, or CIDR blocks (comma-separated)")
	scanPortsCmd.Flags().String("ports", "", "Ports to probe (comma-separated, default common set)")

	scanDirsCmd.Flags().StringP("url", "u", "", "Base URL (e.g., https://target.example)")
	scanDirsCmd.Flags().String("wordlist-file", "", "Wordlist file (one entry per line, # comments)")
	scanDirsCmd.Flags().StringP("extensions", "x", "", "Extensions to append to each word (comma-separated)")
	scanDirsCmd.Flags().String("status-include", joinInts(config.CommonStatusInclude), "HTTP statuses to record (comma-separated, \"all\" disables filtering)")
	scanDirsCmd.Flags().String("auth-header", "", "Authorization header value sent with every request")
	scanDirsCmd.Flags().String("proxy", "", "Proxy URL (http://host:port or socks5://host:port)")
	scanDirsCmd.Flags().Int("retries", 0, "Retries per URL on transport errors and 429/5xx (0 = default)")
	scanDirsCmd.Flags().Float64("qps", 0, "Max requests per second per host (0 = unlimited)")
}

func runScanSubdomains(cmd *cobra.Command, args []string) error {
	domain, _ := cmd.Flags().GetString("domain")
	resolvers, _ := cmd.Flags().GetString("resolvers")
	authorized, _ := cmd.Flags().GetBool("authorized")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	words, err := loadWordlistFlag(cmd)
	if err != nil {
		return err
	}

	cfg := &config.SubdomainScan{
		Domain:      domain,
		Authorized:  authorized,
		Concurrency: concurrency,
		Timeout:     timeout,
		Resolvers:   config.SplitList(resolvers),
		Wordlist:    words,
	}
	return runJob(cmd, cfg)
}

func runScanPorts(cmd *cobra.Command, args []string) error {
	targets, _ := cmd.Flags().GetString("targets")
	portsRaw, _ := cmd.Flags().GetString("ports")
	authorized, _ := cmd.Flags().GetBool("authorized")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var ports []int
	if portsRaw != "" {
		var err error
		ports, err = config.ParsePorts(portsRaw)
		if err != nil {
			return err
		}
	}

	cfg := &config.PortScan{
		Targets:     config.SplitList(targets),
		Authorized:  authorized,
		Ports:       ports,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
	return runJob(cmd, cfg)
}

func runScanDirs(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	extensions, _ := cmd.Flags().GetString("extensions")
	statusRaw, _ := cmd.Flags().GetString("status-include")
	authHeader, _ := cmd.Flags().GetString("auth-header")
	proxy, _ := cmd.Flags().GetString("proxy")
	retries, _ := cmd.Flags().GetInt("retries")
	qps, _ := cmd.Flags().GetFloat64("qps")
	authorized, _ := cmd.Flags().GetBool("authorized")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var statuses []int
	if statusRaw != "" && !strings.EqualFold(statusRaw, "all") {
		var err error
		statuses, err = config.ParseStatusList(statusRaw)
		if err != nil {
			return err
		}
	}
	words, err := loadWordlistFlag(cmd)
	if err != nil {
		return err
	}

	cfg := &config.DirScan{
		BaseURL:       baseURL,
		Authorized:    authorized,
		Extensions:    config.SplitList(extensions),
		Wordlist:      words,
		StatusInclude: statuses,
		AuthHeader:    authHeader,
		Proxy:         proxy,
		Timeout:       timeout,
		Retries:       retries,
		QPSPerHost:    qps,
		Concurrency:   concurrency,
	}
	return runJob(cmd, cfg)
}

// joinInts renders a status list as a comma-separated flag default.
func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// loadWordlistFlag reads --wordlist-file if given.
func loadWordlistFlag(cmd *cobra.Command) ([]string, error) {
	path, _ := cmd.Flags().GetString("wordlist-file")
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wordlist %q: %w", path, err)
	}
	defer f.Close()
	words, err := config.ReadWordlist(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read wordlist %q: %w", path, err)
	}
	return words, nil
}

// runJob starts a job and blocks until it reaches a terminal state.
// CTRL+C cancels the job gracefully.
func runJob(cmd *cobra.Command, cfg config.ScanConfig) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	o := orchestrator.New(st)
	defer o.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	j, err := o.Create(context.Background(), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Job %s started (%s)\n", j.ID, j.Type)

	final, err := waitForJob(ctx, o, j.ID)
	if err != nil {
		return err
	}

	fs, err := o.Findings(context.Background(), j.ID)
	if err != nil {
		return err
	}

	switch final.State {
	case job.StateCompleted:
		fmt.Printf("[+] Job %s completed: %d finding(s)\n", j.ID, len(fs))
	case job.StateCancelled:
		fmt.Printf("[!] Job %s cancelled at %.0f%%: %d finding(s) kept\n", j.ID, final.Progress, len(fs))
	case job.StateFailed:
		return fmt.Errorf("job %s failed: %s", j.ID, final.Error)
	}
	if len(fs) > 0 {
		fmt.Printf("[*] Inspect with: reconx jobs findings %s\n", j.ID)
	}
	return nil
}

// waitForJob polls until the job is terminal, cancelling it on interrupt.
func waitForJob(ctx context.Context, o *orchestrator.Orchestrator, id string) (*job.Job, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	lastPct := -1
	interrupted := false
	for {
		if interrupted {
			<-ticker.C
		} else {
			select {
			case <-ctx.Done():
				interrupted = true
				fmt.Println("\n[!] Interrupt received, cancelling job")
				if _, err := o.Cancel(context.Background(), id); err != nil {
					return nil, err
				}
			case <-ticker.C:
			}
		}

		j, err := o.Get(context.Background(), id)
		if err != nil {
			return nil, err
		}
		if pct := int(j.Progress); pct != lastPct {
			lastPct = pct
			fmt.Printf("\r[*] progress: %3d%%", pct)
		}
		if j.State.Terminal() {
			fmt.Println()
			return j, nil
		}
	}
}
