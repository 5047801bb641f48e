package commands

import (
	"fmt"
	"os"
	"strings"
	"vamkhelp-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(studentCmd)
}

var studentCmd = &cobra.Command{
	Use:   "student <user>",
	Short: "Crawls a registered student's records and prints profile, courses and GPA.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.Close()

		data, err := e.service.StudentData(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to get student data", err)
		}

		profile := table.NewWriter()
		profile.SetOutputMirror(os.Stdout)
		profile.AppendRows([]table.Row{
			{"Student", data.Id},
			{"Name", data.Name},
			{"Degree programme", data.DegreeProgramme},
			{"Groups", strings.Join(data.Groups, ", ")},
			{"Email", data.Email},
			{"GPA", fmt.Sprintf("%.3f", data.Gpa)},
			{"Grades 0-5", fmt.Sprint(data.GradeDistribution)},
		})
		profile.SetStyle(table.StyleRounded)
		profile.Render()

		courses := table.NewWriter()
		courses.SetOutputMirror(os.Stdout)
		courses.AppendHeader(table.Row{"Course", "Credit", "Status", "Grade"})
		for _, c := range data.Courses {
			courses.AppendRow(table.Row{c.Name, c.Credit, c.Status.String(), c.Grade})
		}
		courses.SetStyle(table.StyleRounded)
		courses.Render()

		if len(data.CurrentCourseGroups) == 0 {
			return
		}
		groups := table.NewWriter()
		groups.SetOutputMirror(os.Stdout)
		groups.AppendHeader(table.Row{"Current course", "Calendar course", "Groups"})
		for _, g := range data.CurrentCourseGroups {
			groups.AppendRow(table.Row{g.Course, g.Calendar, strings.Join(g.Groups, ", ")})
		}
		groups.SetStyle(table.StyleRounded)
		groups.Render()
	},
}
