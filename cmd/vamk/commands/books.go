package commands

import (
	"fmt"
	"os"
	"vamkhelp-backend/lib/scrapers/tritonia"
	"vamkhelp-backend/lib/serviceutil"
	"vamkhelp-backend/lib/timezone"
	"vamkhelp-backend/services/vamk"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	renewOnlyDue *bool
	renewTokens  *[]string
)

func init() {
	renewOnlyDue = renewCmd.Flags().Bool("only-due", false, fmt.Sprintf("Only renew loans due within %s.", tritonia.DueSoonWindow))
	renewTokens = renewCmd.Flags().StringSlice("token", nil, "Only renew the loans with these tokens (as printed by books).")
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(renewCmd)
}

func printLoans(loans []tritonia.Loan) {
	now := timezone.Now()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Token", "Title", "Due", "Renewals", "Due soon"})
	for _, loan := range loans {
		soon := ""
		if tritonia.IsLoanDueSoon(loan, now) {
			soon = "yes"
		}
		t.AppendRow(table.Row{loan.Token, loan.Title, loan.Due.Format(tritonia.DueDateLayout), loan.Renewals, soon})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var booksCmd = &cobra.Command{
	Use:   "books <user>",
	Short: "Prints a registered student's current library loans.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		loans, err := e.service.Books(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to get loans", err)
		}
		printLoans(loans)
	},
}

var renewCmd = &cobra.Command{
	Use:   "renew <user> [--only-due] [--token <token>...]",
	Short: "Requests renewal of a registered student's library loans.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		result, err := e.service.Renew(cmd.Context(), args[0], vamk.RenewRequest{
			Tokens:    *renewTokens,
			OnlyIfDue: *renewOnlyDue,
		})
		if err != nil {
			serviceutil.Fatal("failed to renew loans", err)
		}
		fmt.Printf("submitted %d, renewed %d\n", len(result.Submitted), len(result.Renewed))
		printLoans(result.Loans)
	},
}
