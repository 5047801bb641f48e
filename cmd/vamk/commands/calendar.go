package commands

import (
	"fmt"
	"os"
	"strings"
	"vamkhelp-backend/lib/calendar"
	"vamkhelp-backend/lib/serviceutil"
	"vamkhelp-backend/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var suggestLimit *int

func init() {
	suggestLimit = calendarSuggestCmd.Flags().Int("limit", 5, "How many course names to suggest.")
	calendarCmd.AddCommand(calendarLookupCmd)
	calendarCmd.AddCommand(calendarGroupsCmd)
	calendarCmd.AddCommand(calendarSuggestCmd)
	calendarCmd.AddCommand(calendarSetCmd)
	rootCmd.AddCommand(calendarCmd)
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Queries the generated course calendar table.",
}

func requireTable(cfg Config) calendar.Table {
	if cfg.CalendarTable == "" {
		serviceutil.Fatal("calendar_table is not configured", fmt.Errorf("missing calendar table"))
	}
	return loadCalendar(cfg)
}

func printEvents(events []calendar.Event) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Event", "Start", "End"})
	for _, event := range events {
		t.AppendRow(table.Row{
			event.Title,
			event.Start.In(timezone.Location).Format("Mon 02.01.2006 15:04"),
			event.End.In(timezone.Location).Format("15:04"),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var calendarLookupCmd = &cobra.Command{
	Use:   "lookup <course> <group>",
	Short: "Prints the events of one course group.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		t := requireTable(readConfig())
		events := t.LookupEvents(args[0], args[1])
		if len(events) == 0 {
			fmt.Fprintf(os.Stderr, "no events for %q in group %q\n", args[0], args[1])
			for _, s := range t.Suggest(args[0], 3) {
				fmt.Fprintf(os.Stderr, "  did you mean %q? (%.2f)\n", s.Course, s.Similarity)
			}
			return
		}
		printEvents(events)
	},
}

var calendarGroupsCmd = &cobra.Command{
	Use:   "groups <course>...",
	Short: "Prints the group codes of each course.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		codes := requireTable(readConfig()).GroupCodes(args)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Groups"})
		for _, course := range args {
			groups, ok := codes[course]
			if !ok {
				t.AppendRow(table.Row{course, "(unknown course)"})
				continue
			}
			t.AppendRow(table.Row{course, strings.Join(groups, ", ")})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var calendarSuggestCmd = &cobra.Command{
	Use:   "suggest <course>",
	Short: "Prints the calendar course names most similar to a name.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		suggestions := requireTable(readConfig()).Suggest(args[0], *suggestLimit)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Similarity"})
		for _, s := range suggestions {
			t.AppendRow(table.Row{s.Course, fmt.Sprintf("%.3f", s.Similarity)})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

// parseSelections reads "<course>=<group>" arguments.
func parseSelections(args []string) ([]calendar.Selection, error) {
	selections := make([]calendar.Selection, len(args))
	for i, arg := range args {
		course, group, ok := strings.Cut(arg, "=")
		if !ok || course == "" || group == "" {
			return nil, fmt.Errorf("expected <course>=<group>, got %q", arg)
		}
		selections[i] = calendar.Selection{Course: course, Group: group}
	}
	return selections, nil
}

var calendarSetCmd = &cobra.Command{
	Use:   "set <user> <course>=<group>...",
	Short: "Merges the selected course groups into the student's saved calendar.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		selections, err := parseSelections(args[1:])
		if err != nil {
			serviceutil.Fatal("invalid selection", err)
		}

		e := setup()
		defer e.Close()

		events, err := e.service.Calendar(cmd.Context(), args[0], selections)
		if err != nil {
			serviceutil.Fatal("failed to save calendar", err)
		}
		printEvents(events)
	},
}
