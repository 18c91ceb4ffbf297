package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Sla0ui/secheaders/internal/catalog"
	"github.com/Sla0ui/secheaders/internal/detector"
	"github.com/Sla0ui/secheaders/internal/models"
	"github.com/Sla0ui/secheaders/internal/reporter"
	"github.com/Sla0ui/secheaders/internal/scanner"
)

const (
	AppName    = "secheaders"
	AppVersion = "1.0.0"
	AppRepo    = "https://github.com/Sla0ui/secheaders"

	envPrefix     = "SECHEADERS"
	maxValueWidth = 60
)

var (
	green   = color.New(color.FgGreen).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	blue    = color.New(color.FgBlue).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()

	logo = `
 ___  ___  ___  _  _  ___  __  ___  ___  ___  ___
/ __|| __|/ __|| || || __|/  \|   \| __|| _ \/ __|
\__ \| _|| (__ | __ || _|| () | |) | _| |   /\__ \
|___/|___|\___||_||_||___|\__/|___/|___||_|_\|___/
                        HTTP security header scanner
`
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("ERROR:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "secheaders [flags] [URL...]",
		Short: "Scan websites for HTTP security headers",
		Long: logo + `
secheaders fetches one or more URLs and grades their HTTP security headers:
which recommended headers are present or missing, which deprecated headers are
still sent, and which values are known to be insecure.

Examples:
  secheaders example.com
  secheaders -f urls.txt -c 20 -o results.csv
  secheaders --no-follow-redirects -t 5s https://example.com
  secheaders report -i results.json -f html -o report`,
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScan,
	}

	defaults := models.DefaultConfig()
	flags := rootCmd.Flags()
	flags.StringP("file", "f", "", "File with URLs to scan, one per line")
	flags.StringP("output", "o", "", "Export results to a .json or .csv file")
	flags.DurationP("timeout", "t", defaults.Timeout, "Timeout for each request")
	flags.IntP("concurrent", "c", defaults.MaxConcurrent, "Maximum number of concurrent requests")
	flags.Bool("no-verify-ssl", false, "Disable TLS certificate verification")
	flags.Bool("no-follow-redirects", false, "Do not follow HTTP redirects")
	flags.BoolP("verbose", "v", false, "Show full header values, disclosures and debug logs")
	flags.Bool("no-banner", false, "Do not print the banner")
	flags.String("user-agent", models.DefaultUserAgent, "User agent string")
	flags.Int("max-redirects", defaults.MaxRedirects, "Maximum number of redirects to follow")
	flags.Float64("rate", 0, "Maximum requests per second across all workers (0 = unlimited)")
	flags.Bool("browser", false, "Fetch pages with a headless Chrome instead of the HTTP client")
	flags.Duration("browser-timeout", defaults.BrowserTimeout, "Timeout for browser page loads")
	flags.Bool("no-progress", false, "Disable progress bar")
	flags.BoolP("quiet", "q", false, "Only print errors and warnings")

	persistent := rootCmd.PersistentFlags()
	persistent.String("catalog", "", "YAML file with a custom header catalog")
	persistent.Bool("no-color", false, "Disable colorized output")
	persistent.String("config", "", "YAML config file (flags and SECHEADERS_* env vars take precedence)")

	headersCmd := &cobra.Command{
		Use:   "headers",
		Short: "List the security headers that are checked",
		Args:  cobra.NoArgs,
		RunE:  runHeaders,
	}

	reportCmd := &cobra.Command{
		Use:   "report [flags] [RESULTS_FILE]",
		Short: "Generate reports from a saved JSON results file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReport,
	}
	reportCmd.Flags().StringP("input", "i", "", "JSON results file produced with -o results.json")
	reportCmd.Flags().StringP("format", "f", "html", "Report format(s), comma separated (html,json,csv)")
	reportCmd.Flags().StringP("output", "o", "report", "Output file prefix")

	rootCmd.AddCommand(headersCmd, reportCmd)
	return rootCmd
}

// bindConfig layers flags over SECHEADERS_* environment variables over the
// optional config file.
func bindConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

func loadConfig(v *viper.Viper) (*models.Config, error) {
	config := models.DefaultConfig()

	config.Timeout = v.GetDuration("timeout")
	config.MaxConcurrent = v.GetInt("concurrent")
	config.VerifyTLS = !v.GetBool("no-verify-ssl")
	config.FollowRedirects = !v.GetBool("no-follow-redirects")
	config.UserAgent = v.GetString("user-agent")
	config.MaxRedirects = v.GetInt("max-redirects")
	config.RateLimit = v.GetFloat64("rate")
	config.UseBrowser = v.GetBool("browser")
	config.BrowserTimeout = v.GetDuration("browser-timeout")
	config.CatalogPath = v.GetString("catalog")
	config.OutputPath = v.GetString("output")
	config.Verbose = v.GetBool("verbose")
	config.NoColor = v.GetBool("no-color")
	config.NoProgress = v.GetBool("no-progress")
	config.NoBanner = v.GetBool("no-banner")
	config.Quiet = v.GetBool("quiet")

	if config.UserAgent == "" {
		config.UserAgent = models.DefaultUserAgent
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func setupColor(noColor bool) {
	if noColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load header catalog: %w", err)
	}
	return cat, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	v, err := bindConfig(cmd)
	if err != nil {
		return err
	}
	config, err := loadConfig(v)
	if err != nil {
		return err
	}

	setupColor(config.NoColor)

	if !config.Quiet && !config.NoBanner {
		fmt.Println(cyan(logo))
	}

	urls, err := collectURLs(args, v.GetString("file"))
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		fmt.Fprintf(os.Stderr, "%s No URLs specified. Pass URLs as arguments or use -f FILE\n", red("ERROR:"))
		cmd.Usage()
		os.Exit(1)
	}

	cat, err := loadCatalog(config.CatalogPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(config.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	opts := []scanner.Option{scanner.WithCatalog(cat), scanner.WithLogger(logger)}
	if len(urls) > 1 && !config.Quiet && !config.NoProgress && isTerminal(os.Stderr) {
		opts = append(opts, scanner.WithProgress(os.Stderr))
	}

	s, err := scanner.New(config, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []*models.Result
	if len(urls) == 1 {
		if !config.Quiet {
			fmt.Printf("%s Scanning %s\n", blue("INFO:"), cyan(urls[0]))
		}
		results = []*models.Result{s.ScanURL(ctx, urls[0])}
	} else {
		if !config.Quiet {
			fmt.Printf("%s Scanning %s URLs with %d concurrent requests\n",
				blue("INFO:"), magenta(len(urls)), config.MaxConcurrent)
		}
		results = s.ScanURLs(ctx, urls, config.MaxConcurrent)
	}

	if ctx.Err() != nil {
		fmt.Fprintf(os.Stderr, "%s Scan interrupted, remaining URLs were not scanned\n", yellow("WARNING:"))
	}

	if !config.Quiet {
		for _, result := range results {
			displayResult(os.Stdout, result, config.Verbose)
		}
		if len(results) > 1 {
			displaySummary(os.Stdout, models.Summarize(results))
		}
	}

	if config.OutputPath != "" {
		path, fallback, err := reporter.New(results).Export(config.OutputPath)
		if fallback {
			fmt.Fprintf(os.Stderr, "%s Unsupported output extension, writing JSON to %s\n", yellow("WARNING:"), path)
		}
		if err != nil {
			return fmt.Errorf("failed to export results: %w", err)
		}
		if !config.Quiet {
			fmt.Printf("%s Results saved to %s\n", green("SUCCESS:"), path)
		}
	}

	return nil
}

// collectURLs merges command line URLs with those read from file
func collectURLs(args []string, file string) ([]string, error) {
	var urls []string
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			urls = append(urls, arg)
		}
	}

	if file != "" {
		fromFile, err := readURLs(file)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}
	return urls, nil
}

// readURLs reads one URL per line, skipping blank lines and # comments
func readURLs(fileName string) ([]string, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer file.Close()

	var urls []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading URL file: %w", err)
	}
	return urls, nil
}

func scoreColor(score float64) func(a ...interface{}) string {
	switch {
	case score >= 80:
		return green
	case score >= 60:
		return yellow
	case score >= 40:
		return magenta
	default:
		return red
	}
}

func truncate(value string, verbose bool) string {
	if verbose || len(value) <= maxValueWidth {
		return value
	}
	return value[:maxValueWidth-3] + "..."
}

func displayResult(w io.Writer, result *models.Result, verbose bool) {
	fmt.Fprintln(w, "\n--------------------------------")
	fmt.Fprintf(w, "URL: %s\n", cyan(result.URL))

	if !result.IsSuccess() {
		fmt.Fprintf(w, "Error: %s\n", red(result.Error))
		fmt.Fprintln(w, "--------------------------------")
		return
	}

	fmt.Fprintf(w, "Status Code: %d\n", *result.StatusCode)
	if verbose && result.FinalURL != "" && result.FinalURL != result.URL {
		fmt.Fprintf(w, "Final URL: %s\n", result.FinalURL)
	}
	fmt.Fprintf(w, "Security Score: %s\n", scoreColor(result.Score)(fmt.Sprintf("%.2f/100", result.Score)))

	if len(result.PresentHeaders) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Present Headers:"))
		for _, name := range sortedNames(result.PresentHeaders) {
			fmt.Fprintf(w, "  %s %s: %s\n", green("+"), name, truncate(result.PresentHeaders[name], verbose))
		}
	}

	if len(result.MissingHeaders) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Missing Headers:"))
		for _, name := range result.MissingHeaders {
			fmt.Fprintf(w, "  %s %s\n", red("-"), name)
		}
	}

	if len(result.DeprecatedHeaders) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Deprecated Headers:"))
		for _, name := range sortedNames(result.DeprecatedHeaders) {
			fmt.Fprintf(w, "  %s %s: %s\n", yellow("!"), name, truncate(result.DeprecatedHeaders[name], verbose))
		}
	}

	if len(result.InsecureValues) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Insecure Values:"))
		for _, name := range sortedNames(result.InsecureValues) {
			fmt.Fprintf(w, "  %s %s: %s\n", red("!"), name, strings.Join(result.InsecureValues[name], ", "))
		}
	}

	if verbose && len(result.Disclosures) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Information Disclosure:"))
		h := make(http.Header, len(result.Disclosures))
		for _, name := range sortedNames(result.Disclosures) {
			h.Set(name, result.Disclosures[name])
			fmt.Fprintf(w, "  %s %s: %s\n", yellow("?"), name, result.Disclosures[name])
		}
		if tech := detector.DetectDisclosures(h).Summary(); tech != "" {
			fmt.Fprintf(w, "  Technologies: %s\n", tech)
		}
	}

	fmt.Fprintln(w, "--------------------------------")
}

func displaySummary(w io.Writer, s models.Summary) {
	fmt.Fprintf(w, "\n%s\n", bold("Summary"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total URLs\t%d\n", s.Total)
	fmt.Fprintf(tw, "Successful\t%s\n", green(s.Successful))
	fmt.Fprintf(tw, "Failed\t%s\n", red(s.Failed))
	if s.Successful > 0 {
		fmt.Fprintf(tw, "Average Score\t%s\n", scoreColor(s.AverageScore)(fmt.Sprintf("%.2f", s.AverageScore)))
	} else {
		fmt.Fprintf(tw, "Average Score\t%s\n", "n/a")
	}
	tw.Flush()
}

func runHeaders(cmd *cobra.Command, args []string) error {
	v, err := bindConfig(cmd)
	if err != nil {
		return err
	}
	setupColor(v.GetBool("no-color"))

	cat, err := loadCatalog(v.GetString("catalog"))
	if err != nil {
		return err
	}

	fmt.Printf("%s %d headers, %d recommended\n\n", blue("INFO:"), cat.Len(), cat.RecommendedCount())
	for _, def := range cat.Definitions() {
		var tags []string
		if def.Recommended {
			tags = append(tags, green("recommended"))
		}
		if def.Deprecated {
			tags = append(tags, yellow("deprecated"))
		}

		fmt.Printf("%s", bold(def.Name))
		if len(tags) > 0 {
			fmt.Printf(" [%s]", strings.Join(tags, ", "))
		}
		fmt.Println()

		if def.Description != "" {
			fmt.Printf("  %s\n", def.Description)
		}
		if len(def.BadValues) > 0 {
			fmt.Printf("  Insecure values: %s\n", red(strings.Join(def.BadValues, ", ")))
		}
		if def.ReferenceURL != "" {
			fmt.Printf("  Reference: %s\n", def.ReferenceURL)
		}
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	inputFile, _ := cmd.Flags().GetString("input")
	outputPrefix, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	noColor, _ := cmd.Flags().GetBool("no-color")

	setupColor(noColor)

	if inputFile == "" && len(args) > 0 {
		inputFile = args[0]
	}
	if inputFile == "" {
		return fmt.Errorf("no input file specified")
	}

	results, err := reporter.LoadJSON(inputFile)
	if err != nil {
		return err
	}

	fmt.Printf("%s Generating %s report from %s (%d results)\n", blue("INFO:"), format, inputFile, len(results))

	written, err := reporter.New(results).GenerateReport(outputPrefix, format)
	for _, path := range written {
		fmt.Printf("%s Report saved to %s\n", green("SUCCESS:"), path)
	}
	return err
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
