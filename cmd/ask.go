package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lectern0/lectern/internal/tools"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-off question about the indexed courses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSources, "sources", true, "print the course material the answer is based on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")

	answer, sources, err := a.RAG.Query(ctx, question, "")
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(answer)
	if askShowSources {
		printSources(sources)
	}

	return nil
}

func printSources(sources []tools.Source) {
	if len(sources) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("Sources:")
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		line := src.Text
		if src.Link != "" {
			line = fmt.Sprintf("%s (%s)", src.Text, src.Link)
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		fmt.Printf("  - %s\n", line)
	}
}
