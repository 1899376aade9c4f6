package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/concierge-labs/concierge/internal/orchestrator"
	"github.com/concierge-labs/concierge/internal/registry"
	"github.com/concierge-labs/concierge/pkg/models"
)

var (
	chatSession string
	chatUser    string
	chatUrgent  bool
	chatPremium bool
	chatVerbose bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [utterance]",
	Short: "Process one utterance, or start an interactive session",
	Long: `Process a single utterance through the pipeline and print the
synthesized response. Without an utterance, starts an interactive session.

Examples:
  concierge chat "show me headphones"
  concierge chat "track my order" --user user-1
  concierge chat --urgent "my delivery is missing"
  concierge chat                  # interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runInteractiveChat()
		}
		return runOneShot(strings.Join(args, " "))
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Session ID to continue (new session when empty)")
	chatCmd.Flags().StringVar(&chatUser, "user", "", "User ID for personalization and order lookups")
	chatCmd.Flags().BoolVar(&chatUrgent, "urgent", false, "Force every handler to critical priority")
	chatCmd.Flags().BoolVar(&chatPremium, "premium", false, "Raise every handler to at least high priority")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Print pipeline events as the turn progresses")
}

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	escalateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func requestContext() registry.RequestContext {
	return registry.RequestContext{Urgent: chatUrgent, UserPremium: chatPremium}
}

func runOneShot(utterance string) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if chatVerbose {
		go printEvents(a.orch.Events())
	}

	res := a.orch.ProcessTurn(context.Background(), utterance, chatSession, chatUser, requestContext())
	printResult(res)

	if !res.Success {
		os.Exit(1)
	}
	return nil
}

func runInteractiveChat() error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if chatVerbose {
		go printEvents(a.orch.Events())
	}

	fmt.Println(dimStyle.Render("Concierge interactive session. Type 'exit' to leave."))

	sessionID := chatSession
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		res := a.orch.ProcessTurn(context.Background(), line, sessionID, chatUser, requestContext())
		// One session per process run: keep the ID the first turn assigned.
		sessionID = res.Metadata.SessionID
		printResult(res)
	}
	return scanner.Err()
}

func printResult(res models.TurnResult) {
	fmt.Println(assistantStyle.Render("concierge> " + res.ResponseText))
	if res.Escalate {
		fmt.Println(escalateStyle.Render("  [escalated to human support]"))
	}
	if len(res.Suggestions) > 0 {
		var labels []string
		for _, s := range res.Suggestions {
			labels = append(labels, s.Label)
		}
		fmt.Println(dimStyle.Render("  suggestions: " + strings.Join(labels, " | ")))
	}
	if !res.Success {
		fmt.Println(errorStyle.Render("  [turn failed: " + res.ErrorCode + "]"))
	}
}

func printEvents(events <-chan orchestrator.Event) {
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventHandlerCompleted:
			fmt.Println(dimStyle.Render(fmt.Sprintf("  · %s done in %s", ev.HandlerID, ev.Elapsed.Round(1e6))))
		case orchestrator.EventHandlerFailed:
			fmt.Println(dimStyle.Render(fmt.Sprintf("  · %s FAILED: %s", ev.HandlerID, ev.Message)))
		case orchestrator.EventEscalation:
			fmt.Println(dimStyle.Render("  · escalation: " + ev.Message))
		case orchestrator.EventReroute:
			fmt.Println(dimStyle.Render("  · reroute: " + ev.Message))
		}
	}
}
