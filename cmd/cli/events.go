package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-assistant/internal/events"
)

var eventsGroup string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail turn events from Kafka",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVarP(&eventsGroup, "group", "g", "", "consumer group (overrides ASSISTANT_EVENTS_GROUP_ID)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Events.Brokers) == 0 {
		return errors.New("no brokers configured, set ASSISTANT_EVENTS_BROKERS")
	}
	group := cfg.Events.GroupID
	if eventsGroup != "" {
		group = eventsGroup
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub := events.NewKafkaSubscriber(cfg.Events.Brokers, cfg.Events.Topic, group, newLogger(cfg))
	defer sub.Close()

	printHeader(fmt.Sprintf("Tailing %s (group %s), Ctrl-C to stop", cfg.Events.Topic, group))

	faint := color.New(color.Faint)
	review := color.New(color.FgRed)
	return sub.Run(ctx, func(e events.TurnCompleted) error {
		faint.Printf("%s ", e.OccurredAt.Local().Format("15:04:05"))
		fmt.Printf("%s/%s intent=%s citations=%d trace=%s",
			e.UserID, e.SessionID, e.Intent, e.CitationCount, strings.Join(e.Trace, ","))
		if e.NeedsHumanReview {
			review.Print(" review")
		}
		fmt.Println()
		return nil
	})
}
