package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"course-exam-service/internal/app"
	"course-exam-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewUserCmd groups account administration.
func NewUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var username, password, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			user, err := b.services.Auth.AddUser(cmd.Context(), username, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (id %d)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&username, "username", "", "login name")
	add.Flags().StringVar(&password, "password", "", "password")
	add.Flags().StringVar(&role, "role", domain.RoleCandidate, "admin or candidate")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	unlock := &cobra.Command{
		Use:   "unlock USERNAME",
		Short: "Reset the failed-login counter of a locked account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.services.Auth.UnlockUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlocked %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, unlock)
	return cmd
}

// NewCourseCmd groups course administration.
func NewCourseCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Manage courses",
	}

	var in app.NewCourse
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			course, err := b.services.Catalog.AddCourse(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created course %s (id %d)\n", course.Code, course.ID)
			return nil
		},
	}
	add.Flags().StringVar(&in.Code, "code", "", "unique course code")
	add.Flags().StringVar(&in.Title, "title", "", "course title")
	add.Flags().IntVar(&in.TimeAllocation, "time", 60, "time allocation in minutes")
	add.Flags().IntVar(&in.ExamLength, "length", 40, "questions per exam")
	add.Flags().IntVar(&in.PassingMark, "pass", 40, "passing mark in percent")

	list := &cobra.Command{
		Use:   "list",
		Short: "List courses with their question pool size",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			courses, err := b.services.Catalog.ListCourses(cmd.Context())
			if err != nil {
				return err
			}
			writeCourses(cmd.OutOrStdout(), courses)
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// NewQuestionCmd adds a single question to a course.
func NewQuestionCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "question",
		Short: "Manage the question bank",
	}

	var courseCode string
	var in app.NewQuestion
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a question to a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			course, err := b.services.Catalog.GetCourseByCode(cmd.Context(), courseCode)
			if err != nil {
				return err
			}
			in.CourseID = course.ID
			q, err := b.services.Catalog.AddQuestion(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added question %d to %s\n", q.ID, course.Code)
			return nil
		},
	}
	add.Flags().StringVar(&courseCode, "course", "", "course code")
	add.Flags().StringVar(&in.Text, "text", "", "question text")
	add.Flags().StringVar(&in.OptionA, "a", "", "option A")
	add.Flags().StringVar(&in.OptionB, "b", "", "option B")
	add.Flags().StringVar(&in.OptionC, "c", "", "option C")
	add.Flags().StringVar(&in.OptionD, "d", "", "option D")
	add.Flags().StringVar(&in.CorrectAnswer, "answer", "", "correct letter (A-D)")
	add.Flags().IntVar(&in.Points, "points", 1, "point value")
	_ = add.MarkFlagRequired("course")

	cmd.AddCommand(add)
	return cmd
}

// NewImportCmd bulk-loads a question file into a course.
func NewImportCmd(configPath *string) *cobra.Command {
	var courseCode string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import questions from a Q:/A:/B:/C:/D:/ANSWER: text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			course, err := b.services.Catalog.GetCourseByCode(cmd.Context(), courseCode)
			if err != nil {
				return err
			}
			count, err := b.services.Importer.ImportFile(cmd.Context(), course.ID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions into %s\n", count, course.Code)
			return nil
		},
	}
	cmd.Flags().StringVar(&courseCode, "course", "", "course code")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

// NewResultsCmd lists recorded results, optionally for one user.
func NewResultsCmd(configPath *string) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List exam results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			var userID int64
			if username != "" {
				user, err := b.store.GetUserByUsername(cmd.Context(), username)
				if err != nil {
					return err
				}
				userID = user.ID
			}
			results, err := b.services.Analytics.ListResults(cmd.Context(), userID)
			if err != nil {
				return err
			}
			writeResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "only this user's results")
	return cmd
}

// NewAnalyticsCmd prints a candidate's aggregate performance.
func NewAnalyticsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics USERNAME",
		Short: "Show average score and pass rate for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openDurableBackend(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			user, err := b.store.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a, err := b.services.Analytics.Analyze(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "exams taken: %d\naverage: %.1f%%\npassed: %d (%d%%)\n",
				a.ExamsTaken, a.AveragePercent, a.Passed, a.PassRate)
			if len(a.Recent) > 0 {
				fmt.Fprintln(out)
				writeResults(out, a.Recent)
			}
			return nil
		},
	}
}

func writeCourses(w io.Writer, courses []domain.Course) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tTITLE\tMINUTES\tLENGTH\tPASS\tPOOL\tELIGIBLE")
	for _, c := range courses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d%%\t%d\t%t\n",
			c.ID, c.Code, c.Title, c.TimeAllocation, c.ExamLength, c.PassingMark, c.TotalQuestions, c.Eligible())
	}
	_ = tw.Flush()
}

func writeResults(w io.Writer, results []domain.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tUSER\tCOURSE\tSCORE\tPERCENT\tTIME\tPASSED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%.1f%%\t%ds\t%t\n",
			r.TakenAt.Format("2006-01-02 15:04"), r.Username, r.CourseCode,
			r.Score, r.TotalPoints, r.Percentage, r.TimeSpent, r.Passed)
	}
	_ = tw.Flush()
}
