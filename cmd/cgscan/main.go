package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/closeguard/closeguard/internal/engine"
	"github.com/closeguard/closeguard/internal/extract"
	"github.com/closeguard/closeguard/internal/logger"
	"github.com/closeguard/closeguard/internal/rules"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	rulesPath   string
	contextPath string
	jsonOutput  bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "cgscan [flags] file.pdf...",
	Short: "Scan closing documents for fraud indicators",
	Long: `cgscan analyzes real estate closing documents (PDF) against a
catalog of fraud detection rules and prints the findings with a
forensic score. A score of 100 means no indicators were found.`,
	Version: version,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runScan,
}

func init() {
	rootCmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "path to a YAML rule catalog (default: built-in rules)")
	rootCmd.Flags().StringVarP(&contextPath, "context", "c", "", "path to a JSON file with your expectations (promised rates, prices)")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit results as JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include evidence snippets in the output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.NewNop()

	var catalog *rules.Catalog
	var err error
	if rulesPath != "" {
		catalog, err = rules.Load(rulesPath, log)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
	} else {
		catalog = rules.Default(log)
	}

	var userCtx *engine.UserContext
	if contextPath != "" {
		data, err := os.ReadFile(contextPath)
		if err != nil {
			return fmt.Errorf("failed to read context file: %w", err)
		}
		userCtx, err = engine.ParseUserContext(data)
		if err != nil {
			return fmt.Errorf("failed to parse context file: %w", err)
		}
	}

	eng := engine.New(catalog, log)

	exitCode := 0
	for _, path := range args {
		content, err := extract.ExtractText(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = 1
			continue
		}

		result := eng.Analyze(content.Text, userCtx)

		if jsonOutput {
			printJSON(content.Filename, result)
		} else {
			printFindings(content.Filename, result)
		}

		if result.Analytics.HighSeverity > 0 {
			exitCode = 2
		}
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func printJSON(filename string, result engine.Result) {
	out := struct {
		Filename  string           `json:"filename"`
		Flags     []engine.Finding `json:"flags"`
		Analytics engine.Analytics `json:"analytics"`
	}{filename, result.Flags, result.Analytics}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func printFindings(filename string, result engine.Result) {
	bold := color.New(color.Bold)
	bold.Printf("%s\n", filename)

	if len(result.Flags) == 0 {
		color.Green("  no fraud indicators found")
	}

	for _, finding := range result.Flags {
		var c *color.Color
		switch finding.Severity {
		case rules.SeverityHigh:
			c = color.New(color.FgRed, color.Bold)
		case rules.SeverityMedium:
			c = color.New(color.FgYellow)
		default:
			c = color.New(color.FgCyan)
		}

		c.Printf("  [%s] %s\n", finding.Severity, finding.Rule)
		fmt.Printf("      %s\n", finding.Message)
		if verbose && finding.Snippet != "" {
			fmt.Printf("      evidence: %s\n", finding.Snippet)
		}
	}

	scoreColor := color.New(color.FgGreen, color.Bold)
	if result.Analytics.ForensicScore < 50 {
		scoreColor = color.New(color.FgRed, color.Bold)
	} else if result.Analytics.ForensicScore < 80 {
		scoreColor = color.New(color.FgYellow, color.Bold)
	}

	fmt.Printf("  forensic score: ")
	scoreColor.Printf("%d/100", result.Analytics.ForensicScore)
	fmt.Printf("  (%d high, %d medium, %d low)\n\n",
		result.Analytics.HighSeverity,
		result.Analytics.MediumSeverity,
		result.Analytics.LowSeverity,
	)
}
