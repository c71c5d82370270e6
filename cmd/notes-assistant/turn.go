package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
)

type turnFlags struct {
	owner string
	lang  string
}

func (f *turnFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner whose notes and calendar are used")
	cmd.Flags().StringVar(&f.lang, "lang", "en", "answer language (en, pl)")
	_ = cmd.MarkFlagRequired("owner")
}

func askCmd() *cobra.Command {
	flags := &turnFlags{}
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from saved notes and resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			answer, err := s.runtime.Assistant.AnswerQuestion(cmd.Context(), flags.owner, assistant.AskInput{
				Message: strings.Join(args, " "),
				Lang:    flags.lang,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Text)
			if len(answer.Sources) > 0 {
				fmt.Fprintf(out, "\nSources: %s\n", strings.Join(answer.Sources, ", "))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func planCmd() *cobra.Command {
	flags := &turnFlags{}
	var confirmTags []string
	cmd := &cobra.Command{
		Use:   "plan [request]",
		Short: "Run one planning turn against the calendar",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			input := assistant.PlanInput{Message: strings.Join(args, " "), Lang: flags.lang}
			var result assistant.PlanningResult
			if len(confirmTags) > 0 {
				result, err = s.planner.ConfirmTags(cmd.Context(), flags.owner, assistant.ConfirmInput{PlanInput: input, Tags: confirmTags})
			} else {
				result, err = s.planner.PlanningTurn(cmd.Context(), flags.owner, input)
			}
			if err != nil {
				return err
			}
			printPlanningResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&confirmTags, "confirm-tags", nil, "tags to add to the vocabulary before replaying the request")
	return cmd
}

func printPlanningResult(out io.Writer, result assistant.PlanningResult) {
	fmt.Fprintln(out, result.Text)
	if result.Status == assistant.StatusPending {
		fmt.Fprintf(out, "\nRe-run with --confirm-tags %s to add them.\n", strings.Join(result.UnknownTags, ","))
	}
}
