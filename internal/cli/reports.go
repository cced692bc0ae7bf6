package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/inspection-sync/internal/application/ledger"
	"github.com/bryanwahyu/inspection-sync/internal/application/scheduling"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/infra/export"
	"github.com/bryanwahyu/inspection-sync/internal/infra/storage"
	"github.com/bryanwahyu/inspection-sync/internal/middleware"
)

// AutoRouteCmd assigns unassigned inspections in a window.
func AutoRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoroute",
		Short: "Assign unassigned pending inspections to inspectors by day and zip code",
		RunE:  runAutoRoute,
	}
	cmd.Flags().String("agency", "", "Agency ID (required)")
	cmd.Flags().String("start", "", "Window start, YYYY-MM-DD or RFC3339 (required)")
	cmd.Flags().String("end", "", "Window end, YYYY-MM-DD or RFC3339 (required)")
	cmd.Flags().Int("offset", 0, "Rotation offset from the previous run")
	cmd.Flags().String("actor", "inspectctl", "Actor recorded in the audit trail")
	_ = cmd.MarkFlagRequired("agency")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runAutoRoute(cmd *cobra.Command, args []string) error {
	agency, _ := cmd.Flags().GetString("agency")
	startRaw, _ := cmd.Flags().GetString("start")
	endRaw, _ := cmd.Flags().GetString("end")
	offset, _ := cmd.Flags().GetInt("offset")
	actor, _ := cmd.Flags().GetString("actor")

	e, ctx, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	loc := e.cfg.Location()
	start, err := middleware.ParseDateIn(startRaw, loc)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := middleware.ParseDateIn(endRaw, loc)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	if !strings.Contains(endRaw, "T") {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	svc := &scheduling.Service{Store: e.db.Store, Clock: e.clock, Log: e.log, Location: loc}
	res, err := svc.AutoRoute(ctx, scheduling.AutoRouteCommand{
		AgencyID: agency,
		ActorID:  actor,
		Start:    start,
		End:      end,
		Offset:   offset,
	})
	if err != nil {
		return err
	}
	if res.Message != "" {
		fmt.Printf("%s %s\n", warnLabel, res.Message)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DATE\tZIP\tINSPECTOR\tINSPECTIONS")
	fmt.Fprintln(w, "----\t---\t---------\t-----------")
	for _, c := range res.Clusters {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.Date, c.ZipCode, c.InspectorID, len(c.InspectionIDs))
	}
	w.Flush()
	fmt.Printf("%s %d assignments, next offset %s\n", okLabel, res.Assignments, bold.Sprint(res.NextOffset))
	return nil
}

// DueUnitsCmd lists units due for inspection.
func DueUnitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due-units",
		Short: "List units never inspected or due within the window",
		RunE:  runDueUnits,
	}
	cmd.Flags().String("agency", "", "Agency ID (required)")
	cmd.Flags().Int("days", 30, "Look-ahead window in days")
	_ = cmd.MarkFlagRequired("agency")
	return cmd
}

func runDueUnits(cmd *cobra.Command, args []string) error {
	agency, _ := cmd.Flags().GetString("agency")
	days, _ := cmd.Flags().GetInt("days")

	e, ctx, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	svc := &scheduling.Service{Store: e.db.Store, Clock: e.clock, Log: e.log, Location: e.cfg.Location()}
	units, err := svc.UnitsDue(ctx, agency, middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	if len(units) == 0 {
		fmt.Println("No units due.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tADDRESS\tZIP\tSTATUS\tNEXT DUE")
	fmt.Fprintln(w, "--\t-------\t---\t------\t--------")
	for _, u := range units {
		next := "never inspected"
		if d, ok := domain.NextDue(*u); ok {
			next = d.Format("2006-01-02")
		}
		addr := u.Address
		if len(addr) > 40 {
			addr = addr[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, addr, u.ZipCode, u.ComplianceStatus, next)
	}
	w.Flush()
	fmt.Printf("\n%d units due\n", len(units))
	return nil
}

// ExportDeficienciesCmd writes the deficiency ledger workbook.
func ExportDeficienciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-deficiencies",
		Short: "Export the deficiency ledger as an xlsx workbook",
		RunE:  runExportDeficiencies,
	}
	cmd.Flags().String("agency", "", "Agency ID (required)")
	cmd.Flags().String("status", "", "Filter by status (open, resolved, verified)")
	cmd.Flags().String("out", "", "Write to this file (default deficiencies-<agency>.xlsx)")
	cmd.Flags().Bool("upload", false, "Upload to object storage instead of writing a file")
	_ = cmd.MarkFlagRequired("agency")
	return cmd
}

func runExportDeficiencies(cmd *cobra.Command, args []string) error {
	agency, _ := cmd.Flags().GetString("agency")
	status, _ := cmd.Flags().GetString("status")
	out, _ := cmd.Flags().GetString("out")
	upload, _ := cmd.Flags().GetBool("upload")

	e, ctx, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	svc := &ledger.Service{Store: e.db.Store, Render: export.Workbook, Clock: e.clock, Log: e.log}
	if upload {
		m := e.cfg.Minio
		if m.Endpoint == "" {
			return fmt.Errorf("--upload needs minio.endpoint in config")
		}
		objects, err := storage.New(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL, e.log)
		if err != nil {
			return err
		}
		svc.Objects = objects
		url, err := svc.ExportToObject(ctx, agency, status)
		if err != nil {
			return err
		}
		fmt.Printf("%s uploaded %s\n", okLabel, url)
		return nil
	}

	raw, err := svc.Export(ctx, agency, status)
	if err != nil {
		return err
	}
	if out == "" {
		out = fmt.Sprintf("deficiencies-%s.xlsx", agency)
	}
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("%s wrote %s (%d bytes)\n", okLabel, out, len(raw))
	return nil
}
