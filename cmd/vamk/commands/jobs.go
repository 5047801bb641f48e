package commands

import (
	"fmt"
	"time"
	"vamkhelp-backend/lib/serviceutil"
	"vamkhelp-backend/lib/telemetry"
	"vamkhelp-backend/services/jobs"

	"github.com/spf13/cobra"
)

func init() {
	jobsCmd.AddCommand(gradeWatchCmd)
	jobsCmd.AddCommand(autoRenewCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(daemonCmd)
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Runs a batch job once over every opted-in student.",
}

func printReport(job string, report jobs.Report) {
	fmt.Printf("%s: checked %d, notified %d, failed %d\n", job, report.Checked, report.Notified, report.Failed)
}

var gradeWatchCmd = &cobra.Command{
	Use:   "gradewatch",
	Short: "Mails students whose grade distribution changed since the last crawl.",
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		report, err := e.runner().GradeWatch(cmd.Context())
		if err != nil {
			serviceutil.Fatal("grade watch failed", err)
		}
		printReport("grade watch", report)
	},
}

var autoRenewCmd = &cobra.Command{
	Use:   "autorenew",
	Short: "Renews due loans of students with automatic renewal enabled.",
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		report, err := e.runner().AutoRenew(cmd.Context())
		if err != nil {
			serviceutil.Fatal("auto renew failed", err)
		}
		printReport("auto renew", report)
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Runs both batch jobs periodically until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		telemetry.InstrumentPerfStats(cmd.Context(), time.Minute)
		interval := e.config.DaemonInterval()
		fmt.Printf("running jobs every %s\n", interval)
		e.runner().Daemon(cmd.Context(), interval)
	},
}
