package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "voyagent",
		Short: "Travel-agency dialogue gateway with slot filling, FAQ ranking, and human handoff",
		Long: strings.TrimSpace(`voyagent routes customer messages for a travel agency: it extracts
entities, fills booking slots across turns, answers FAQs from a ranked
corpus, and queues conversations for human agents with working-hours
and VIP-priority scheduling.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newQueueCommand())
	root.AddCommand(newSweepCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.voyagent configuration",
		Example: "  voyagent onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard()
		},
	}
}

func newChatCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a local interactive chat session (no gateway)",
		Long:  "Chat with the dialogue engine directly from the terminal. Runs rule-based when no classifier endpoint is configured.",
		Example: strings.Join([]string{
			"  voyagent chat",
			"  voyagent chat --debug",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return chatCmd(debug)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newServeCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP gateway, channels, and handoff sweep",
		Long:    "Start the webhook/API server, enabled push channels, the dialogue engine loop, and the periodic off-hours promotion sweep.",
		Example: "  voyagent serve --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd(debug)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newQueueCommand() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List the human-handoff waiting queue of a running gateway",
		Example: strings.Join([]string{
			"  voyagent queue",
			"  voyagent queue --region taipei",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queueCmd(region)
		},
	}
	cmd.Flags().StringVarP(&region, "region", "r", "", "Only show conversations from this region")

	return cmd
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "sweep",
		Short:   "Trigger the off-hours promotion sweep on a running gateway",
		Example: "  voyagent sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepCmd()
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCmd()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}
