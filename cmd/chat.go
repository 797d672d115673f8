package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation about the indexed courses",
	Long: `Chat keeps the conversation history for the duration of the
session, so follow-up questions can refer to earlier answers.

Type 'exit' or press Ctrl-D to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := a.RAG.NewSession()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Ask about your courses. Type 'exit' to leave.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()

			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		answer, sources, err := a.RAG.Query(ctx, question, sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)

			continue
		}

		fmt.Println(answer)
		printSources(sources)
		fmt.Println()
	}
}
