package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/domain"
)

type chatRequest struct {
	Messages []domain.Message `json:"messages"`
}

func AskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the CV assistant a question",
		Long: `Ask the CV assistant a question and print the answer with its sources.

Without arguments, starts an interactive conversation on stdin; an empty
line or EOF ends it.`,
		RunE: runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	client := NewAPIClientWithCmd(cmd)
	if len(args) > 0 {
		messages := []domain.Message{{Role: domain.RoleUser, Content: strings.Join(args, " ")}}
		reply, err := ask(cmd, client, messages)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), reply)
		}
		printReply(cmd.OutOrStdout(), reply)
		return nil
	}

	return converse(cmd, client, cmd.InOrStdin())
}

// converse keeps the running history so follow-up questions have context.
func converse(cmd *cobra.Command, client *APIClient, in io.Reader) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(in)
	var history []domain.Message

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}

		history = append(history, domain.Message{Role: domain.RoleUser, Content: question})
		reply, err := ask(cmd, client, history)
		if err != nil {
			return err
		}
		history = append(history, domain.Message{Role: domain.RoleAssistant, Content: reply.Content})
		printReply(out, reply)
	}
}

func ask(cmd *cobra.Command, client *APIClient, messages []domain.Message) (*domain.ChatReply, error) {
	var reply domain.ChatReply
	if err := client.Post(cmd.Context(), "/api/chat", chatRequest{Messages: messages}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func printReply(w io.Writer, reply *domain.ChatReply) {
	fmt.Fprintln(w, reply.Content)
	if len(reply.Sources) == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, s := range reply.Sources {
		fmt.Fprintf(w, "  [%s] %s\n", s.ID, s.Excerpt)
	}
	fmt.Fprintln(w)
}
