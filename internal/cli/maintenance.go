package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appsyncs "github.com/bryanwahyu/inspection-sync/internal/application/syncs"
	"github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

// MigrateCmd applies the embedded schema.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if e.db.SQL == nil {
				fmt.Printf("%s memory driver has no schema\n", warnLabel)
				return nil
			}
			if err := e.db.Migrate(ctx); err != nil {
				return err
			}
			fmt.Printf("%s schema applied (%s)\n", okLabel, e.db.SQL.Dialect())
			return nil
		},
	}
}

// PruneSyncsCmd deletes old sync records.
func PruneSyncsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune-syncs",
		Short: "Delete sync records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			days, _ := cmd.Flags().GetInt("days")
			retention := e.cfg.Retention()
			if days > 0 {
				retention = time.Duration(days) * 24 * time.Hour
			}
			svc := &appsyncs.Service{Store: e.db.Store, Clock: e.clock, Log: e.log}
			n, err := svc.Prune(ctx, retention)
			if err != nil {
				return err
			}
			fmt.Printf("%s deleted %d sync records older than %d days\n", okLabel, n, int(retention.Hours()/24))
			return nil
		},
	}
	cmd.Flags().Int("days", 0, "Retention in days (default sync.retentionDays)")
	return cmd
}

// InspectorCmd manages the inspector roster used by auto-route.
func InspectorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspector",
		Short: "Manage inspectors",
	}
	add := &cobra.Command{
		Use:   "add <agency> <id> <name>",
		Short: "Add or update an inspector",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if e.db.SQL == nil {
				return fmt.Errorf("inspector add needs a SQL driver")
			}
			inactive, _ := cmd.Flags().GetBool("inactive")
			in := &inspections.Inspector{ID: args[1], AgencyID: args[0], Name: args[2], Active: !inactive}
			if err := e.db.SQL.InspectorRoster().Save(ctx, in); err != nil {
				return err
			}
			fmt.Printf("%s inspector %s saved for %s\n", okLabel, bold.Sprint(in.Name), in.AgencyID)
			return nil
		},
	}
	add.Flags().Bool("inactive", false, "Store the inspector as inactive")
	cmd.AddCommand(add)
	return cmd
}
