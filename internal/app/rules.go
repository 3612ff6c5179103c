package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/blackwell-systems/projclean/internal/output"
	"github.com/blackwell-systems/projclean/internal/rules"
	"github.com/spf13/cobra"
)

var (
	rulesFile      string
	rulesInitForce bool

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "List, create and validate rule files",
		Long: `Rules decide what a scan reports. A rule file is JSON, either a list of
{"pattern": ..., "kind": "dir"|"file"} entries or an object with "rules"
and "protect" keys:

  {
    "rules": [
      {"pattern": "node_modules", "kind": "dir"},
      {"pattern": "*.o", "kind": "file"}
    ],
    "protect": [".git", "vendor"]
  }

A pattern without a slash matches an entry's name at any depth. A pattern
with a slash matches the path relative to the scan root. * and ? are
wildcards.

Without a subcommand the active rules are listed.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runRulesList,
	}

	rulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "Show the active rules",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  runRulesList,
	}

	rulesInitCmd = &cobra.Command{
		Use:   "init <path>",
		Short: "Write the built-in rules to a file to start customizing",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE:  runRulesInit,
	}

	rulesValidateCmd = &cobra.Command{
		Use:   "validate <path>",
		Short: "Check a rule file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE:  runRulesValidate,
	}
)

func init() {
	rulesCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "rule file (JSON)")
	rulesInitCmd.Flags().BoolVarP(&rulesInitForce, "force", "f", false, "overwrite an existing file")

	rulesCmd.AddCommand(rulesListCmd, rulesInitCmd, rulesValidateCmd)
	RootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	e, err := setup(noStore)
	if err != nil {
		return err
	}
	defer e.Close()

	set, source, err := loadRules(rulesFile, e.cfg)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	fmt.Printf("Rules from %s:\n\n", source)
	fmt.Print(output.RenderRuleTable(set))
	return nil
}

func runRulesInit(cmd *cobra.Command, args []string) error {
	path := args[0]

	if _, err := os.Stat(path); err == nil && !rulesInitForce {
		return usageErrorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	set := rules.Defaults()
	if err := rules.Write(path, set); err != nil {
		return err
	}

	fmt.Printf("✓ Wrote %d rules to %s\n", set.Len(), path)
	fmt.Printf("\nEdit it, then use it with --rules %s or set rules_file in the config.\n", path)
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	set, err := rules.Load(path)
	if err != nil {
		fmt.Printf("✗ %s\n", path)
		return err
	}

	fmt.Printf("✓ %s: %d rules, %d protect patterns\n", path, set.Len(), len(set.Protect))
	return nil
}
