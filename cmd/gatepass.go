package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/dashboard"
	"github.com/frahmantamala/gatepass/internal/gatepass"
)

var (
	dashboardJSON bool
	draftTimeOut  string
	draftTimeIn   string
	draftPurpose  string
	rejectReason  string
	downloadDir   string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the gate passes visible to the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			ctrl, err := app.controller(ctx)
			if err != nil {
				return err
			}
			if dashboardJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ctrl.Snapshot())
			}
			printDashboard(cmd.OutOrStdout(), ctrl)
			return nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Request a new gate pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			ctrl, err := app.controller(ctx)
			if err != nil {
				return err
			}
			d := dashboard.NewDraft(time.Now())
			applyDraftFlags(cmd, &d)
			return ctrl.Create(ctx, d)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Edit and resubmit a pending or rejected gate pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			ctrl, err := app.controller(ctx)
			if err != nil {
				return err
			}
			gp, ok := ctrl.Snapshot().Find(id)
			if !ok || !gp.Editable() {
				return errors.NewAPIError(http.StatusNotFound, fmt.Sprintf("no editable gate pass #%d", id))
			}
			d := dashboard.EditDraft(gp)
			applyDraftFlags(cmd, &d)
			return ctrl.Update(ctx, id, d)
		})
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve ID",
	Short: "Approve a pending gate pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			ctrl, err := app.controller(ctx)
			if err != nil {
				return err
			}
			return ctrl.Approve(ctx, id)
		})
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject ID",
	Short: "Reject a pending gate pass with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			ctrl, err := app.controller(ctx)
			if err != nil {
				return err
			}
			return ctrl.Reject(ctx, id, rejectReason)
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download ID",
	Short: "Save the PDF of an approved gate pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
			ctrl, err := app.controller(ctx)
			if err != nil {
				return err
			}
			path, err := ctrl.Download(ctx, id, downloadDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid gate pass id %q", arg), errors.ErrCodeValidationFailed)
	}
	return id, nil
}

// applyDraftFlags overwrites only the fields given on the command line.
func applyDraftFlags(cmd *cobra.Command, d *dashboard.Draft) {
	if cmd.Flags().Changed("time-out") {
		d.TimeOut = draftTimeOut
	}
	if cmd.Flags().Changed("time-in") {
		d.TimeIn = draftTimeIn
	}
	if cmd.Flags().Changed("purpose") {
		d.Purpose = draftPurpose
	}
}

func printDashboard(out io.Writer, ctrl *dashboard.Controller) {
	counts := ctrl.Analytics()
	fmt.Fprintf(out, "%s dashboard: %d total, %d pending, %d approved, %d rejected\n\n",
		ctrl.Role(), counts.Total, counts.Pending, counts.Approved, counts.Rejected)

	snap := ctrl.Snapshot()
	groups := []struct {
		title  string
		passes []gatepass.GatePass
	}{
		{"Pending", snap.Pending},
		{"Approved", snap.Approved},
		{"Rejected", snap.Rejected},
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, g := range groups {
		if len(g.passes) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\n", g.title)
		fmt.Fprintln(tw, "ID\tWORKMAN\tOUT\tIN\tPURPOSE\tNOTE")
		for _, gp := range g.passes {
			note := ""
			switch gp.ApprovalStatus {
			case gatepass.StatusApproved:
				note = "approved " + gatepass.FormatDateTime(gp.ApprovedAt)
			case gatepass.StatusRejected:
				if gp.RejectionReason != nil {
					note = *gp.RejectionReason
				}
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", gp.ID, gp.WorkmanUsername,
				gatepass.FormatTime(gp.TimeOut), gatepass.FormatTime(gp.TimeIn), gp.Purpose, note)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardJSON, "json", false, "print the raw snapshot as JSON")

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().StringVar(&draftTimeOut, "time-out", "", "time out, HH:MM")
		c.Flags().StringVar(&draftTimeIn, "time-in", "", "time in, HH:MM")
		c.Flags().StringVar(&draftPurpose, "purpose", "", "purpose of the visit")
	}

	rejectCmd.Flags().StringVarP(&rejectReason, "reason", "r", "", "rejection reason (required)")
	downloadCmd.Flags().StringVarP(&downloadDir, "dir", "d", ".", "directory to save the PDF into")
}
