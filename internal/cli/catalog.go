package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/catalog"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogActionsCmd)
	catalogCmd.AddCommand(catalogRewardsCmd)
	catalogCmd.AddCommand(catalogCheckCmd)

	catalogCmd.PersistentFlags().String("file", "", "catalog TOML file (default: [catalog].path or built-in)")
	catalogCmd.PersistentFlags().Bool("json", false, "print JSON")
	catalogActionsCmd.Flags().String("category", "", "only this category")
	catalogRewardsCmd.Flags().String("category", "", "only this reward category")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the action and reward tables",
}

// ─── catalog actions ────────────────────────────────────────────────────────

var catalogActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List loggable activities and their token values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		rows := cat.Activities()
		if name, _ := cmd.Flags().GetString("category"); name != "" {
			c, err := domain.ParseCategory(name)
			if err != nil {
				return err
			}
			rows = cat.ByCategory(c)
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), rows)
		}
		return printActivities(cmd.OutOrStdout(), rows)
	},
}

func printActivities(w io.Writer, rows []domain.Activity) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tACTIVITY\tTOKENS")
	for _, a := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", a.Category, a.Name, a.Tokens)
	}
	return tw.Flush()
}

// ─── catalog rewards ────────────────────────────────────────────────────────

var catalogRewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "List redeemable rewards",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		category, _ := cmd.Flags().GetString("category")
		rows := cat.RewardsIn(category)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), rows)
		}
		return printRewards(cmd.OutOrStdout(), rows)
	},
}

func printRewards(w io.Writer, rows []domain.Reward) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tCOST")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.ID, r.Title, r.Category, r.Cost)
	}
	return tw.Flush()
}

// ─── catalog check ──────────────────────────────────────────────────────────

var catalogCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a catalog TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s: %d activities, %d rewards\n",
			args[0], len(cat.Activities()), len(cat.Rewards()))
		return nil
	},
}

// openCatalog resolves --file, then [catalog].path, then the built-in tables.
func openCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Catalog.Path
	}
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
