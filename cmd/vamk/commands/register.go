package commands

import (
	"log/slog"
	"vamkhelp-backend/lib/serviceutil"
	"vamkhelp-backend/services/vamk"

	"github.com/spf13/cobra"
)

var registerReq vamk.RegisterRequest

func init() {
	flags := registerCmd.Flags()
	flags.StringVar(&registerReq.WinhaId, "winha-id", "", "Student id used to log into Winha, eg. e1234567.")
	flags.StringVar(&registerReq.WinhaPassword, "winha-password", "", "Winha password.")
	flags.StringVar(&registerReq.TritoniaId, "tritonia-id", "", "Library card number.")
	flags.StringVar(&registerReq.TritoniaLastName, "tritonia-last-name", "", "Last name as known to the library.")
	flags.StringVar(&registerReq.TritoniaPin, "tritonia-pin", "", "Library PIN.")
	flags.BoolVar(&registerReq.AutoWinha, "auto-winha", false, "Mail the student when new grades appear.")
	flags.BoolVar(&registerReq.AutoTritonia, "auto-tritonia", false, "Renew the student's due loans automatically.")
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register <user> [flags]",
	Short: "Stores (or replaces) a student's portal credentials and automation settings.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		err := e.service.Register(cmd.Context(), args[0], registerReq)
		if err != nil {
			serviceutil.Fatal("failed to register student", err)
		}
		slog.Info("registered student", "user", args[0], "winha_id", registerReq.WinhaId, "tritonia_id", registerReq.TritoniaId)
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister <user>",
	Short: "Forgets a student, including stored credentials and snapshots.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		err := e.service.Store().Delete(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to delete student", err)
		}
		slog.Info("deleted student", "user", args[0])
	},
}
