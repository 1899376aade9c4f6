package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/concierge-labs/concierge/internal/handler"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every handler and report system health",
	Long: `Probe each registered handler with a synthetic health-check input and
print the per-handler outcome. The exit code is non-zero when any handler
is unhealthy, so the command can back a readiness check.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.orch.CheckHealth(context.Background())

	for _, hh := range report.Handlers {
		if hh.Status == handler.StatusHealthy {
			printHealthLine("✓", hh.HandlerID, "healthy", color.FgGreen)
		} else {
			detail := hh.Detail
			if detail == "" {
				detail = "unhealthy"
			}
			printHealthLine("✗", hh.HandlerID, detail, color.FgRed)
		}
	}

	fmt.Println()
	if report.Overall == handler.StatusHealthy {
		fmt.Printf("%s all handlers healthy\n", color.GreenString("✓"))
		return nil
	}

	fmt.Printf("%s system degraded\n", color.RedString("✗"))
	os.Exit(1)
	return nil
}

// printHealthLine prints one handler's probe outcome with color.
func printHealthLine(symbol, handlerID, detail string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %-20s %s\n", c.Sprint(symbol), handlerID, detail)
}
