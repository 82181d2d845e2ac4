package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"owlynn-be/pkg/events"
	pktNats "owlynn-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var eventsSubject string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow the event stream",
	Long: `Follow the event stream published by the API.

Only events published after the command starts are shown.

Examples:
  owlynn events
  owlynn events --subject events.DOCUMENT_UPLOADED`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVarP(&eventsSubject, "subject", "s", pktNats.SubjectPrefix+">", "subject filter")
}

func runEvents(cmd *cobra.Command, args []string) error {
	if cfg.App.NatsURL == "" {
		return fmt.Errorf("NATS_URL is not set")
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cc, err := sub.Subscribe(ctx, eventsSubject, "", printEvent)
	if err != nil {
		return err
	}
	defer cc.Stop()

	color.Cyan("Listening on %s (Ctrl+C to stop)", eventsSubject)
	<-ctx.Done()
	return nil
}

func printEvent(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", event.Payload()))
	}

	typeColor := color.New(color.FgGreen, color.Bold)
	if event.EventType() == events.TypeConversationsPurged {
		typeColor = color.New(color.FgYellow, color.Bold)
	}
	fmt.Printf("%s %s %s\n",
		color.HiBlackString(event.Timestamp().Local().Format(time.TimeOnly)),
		typeColor.Sprint(event.EventType()),
		string(payload),
	)
	return nil
}
