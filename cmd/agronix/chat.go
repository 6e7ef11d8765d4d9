package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agronix/assistant"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	var (
		userID  string
		message string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		Long:  "Sends one message with --message, or reads messages from stdin until EOF or \"exit\".",
		RunE: func(cmd *cobra.Command, _ []string) error {
			nix, err := root.open()
			if err != nil {
				return err
			}
			defer nix.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if message != "" {
				res, err := nix.Turn(ctx, userID, message)
				if err != nil {
					return err
				}
				printTurn(out, res)
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}

				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				}

				res, err := nix.Turn(ctx, userID, line)
				if err != nil {
					return err
				}
				printTurn(out, res)
			}
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Single message to send")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printTurn(w io.Writer, res assistant.TurnResult) {
	fmt.Fprintln(w, res.Answer)

	if len(res.TasksCreated) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tasks created today:")
		for _, t := range res.TasksCreated {
			fmt.Fprintf(w, "  ✅ %s\n", t)
		}
	}

	if res.Failure != nil {
		fmt.Fprintf(w, "(model failure: %s)\n", res.Failure.Kind)
	}
}
