package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.PersistentFlags().String("path", "", "journal database (default: [journal].path)")
	journalCmd.Flags().String("type", "", "only this event type")
	journalCmd.Flags().String("action", "", "only events for this action ID")
	journalCmd.Flags().Int("limit", 50, "maximum events to print (0 = all)")
	journalCmd.Flags().Bool("json", false, "print JSON")
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Read the ledger event journal",
	Long: `Print events recorded by 'greencred serve --journal'. The journal is an
audit trail; it is never replayed into the ledger.`,
	RunE: runJournal,
}

func runJournal(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return fmt.Errorf("no journal path: pass --path or set [journal].path")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal %s: %w", path, err)
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	f := sqlite.Filter{}
	typ, _ := cmd.Flags().GetString("type")
	f.Type = domain.EventType(typ)
	f.ActionID, _ = cmd.Flags().GetString("action")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	events, err := db.List(f)
	if err != nil {
		return fmt.Errorf("list journal: %w", err)
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), events)
	}
	return printEvents(cmd.OutOrStdout(), events)
}

func printEvents(w io.Writer, events []domain.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tAT\tTYPE\tREF\tAMOUNT\tBALANCE\tSTATUS")
	for _, e := range events {
		ref := e.ActionID
		if e.RewardID != "" {
			ref = e.RewardID
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%+d\t%d\t%s\n",
			e.Seq, e.At.Local().Format(time.DateTime), e.Type, ref, e.Amount, e.Balance, e.Status)
	}
	return tw.Flush()
}
