package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and prune stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, most recently active first",
	RunE:  runSessionsList,
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete sessions past the inactivity TTL",
	Long: `Delete sessions that have been inactive longer than the configured
sessions.ttl, along with their turn history.`,
	RunE: runSessionsPurge,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.store.ListSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}

	fmt.Printf("%-36s %-12s %-16s %s\n", "SESSION", "USER", "LAST ACTIVE", "FAILURES")
	for _, s := range sessions {
		user := s.UserID
		if user == "" {
			user = "-"
		}
		fmt.Printf("%-36s %-12s %-16s %d\n", s.ID, user, formatAge(s.LastActiveAt), s.FailureStreak)
	}
	return nil
}

func runSessionsPurge(cmd *cobra.Command, args []string) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.PurgeExpiredSessions(a.cfg.Sessions.TTL)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}

	fmt.Printf("Purged %d expired session(s) (TTL %s).\n", n, a.cfg.Sessions.TTL)
	return nil
}

// formatAge renders a timestamp as a coarse "Ns/Nm/Nh/Nd ago" label.
func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
