package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the indexed courses",
	Args:  cobra.NoArgs,
	RunE:  runCourses,
}

func init() {
	rootCmd.AddCommand(coursesCmd)
}

func runCourses(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	analytics, err := a.RAG.CourseAnalytics(ctx)
	if err != nil {
		return fmt.Errorf("loading course analytics: %w", err)
	}

	fmt.Printf("Courses: %d\n", analytics.TotalCourses)
	for _, title := range analytics.CourseTitles {
		fmt.Printf("  - %s\n", title)
	}

	return nil
}
