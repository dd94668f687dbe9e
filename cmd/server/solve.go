package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/config"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/core"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/wolfram"
)

var solveCmd = &cobra.Command{
	Use:   "solve <question>",
	Short: "Solve a math problem with the built-in worked solutions or Wolfram Alpha",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadUnchecked()
		question := strings.Join(args, " ")

		if sol, ok := wolfram.LookupWorked(question); ok {
			fmt.Fprintln(cmd.OutOrStdout(), wolfram.FormatChatResponse(sol))
			return nil
		}

		res := core.SolveMath(cmd.Context(), wolfram.NewClient(cfg.WolframAppID), question)
		if !res.Success {
			return fmt.Errorf("no solution for %q: %s", question, res.Error)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.SolutionSummary)
		return nil
	},
}
