package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/warren-dev/warren/internal/observability"
	"github.com/warren-dev/warren/pkg/models"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read and append workspace activity events",
}

var (
	appendActorID   string
	appendActorType string
	appendDataJSON  string
)

var eventsAppendCmd = &cobra.Command{
	Use:   "append <workspace-id> <event-type>",
	Short: "Append an event to the workspace log",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		data := map[string]any{}
		if appendDataJSON != "" {
			if err := json.Unmarshal([]byte(appendDataJSON), &data); err != nil {
				return fmt.Errorf("parsing --data: %w", err)
			}
		}
		actor := models.Actor{
			ID:   appendActorID,
			Type: models.ActorType(appendActorType),
		}
		if actor.ID == "" {
			actor.ID = "cli"
			actor.Type = models.ActorTypeUser
		}
		event, err := EventLog.Append(ws.Path, args[1], actor, data)
		if err != nil {
			return fmt.Errorf("appending event: %w", err)
		}
		fmt.Printf("Appended %s (%s)\n", event.ID, event.Type)
		return nil
	},
}

var readLimit int

var eventsReadCmd = &cobra.Command{
	Use:   "read <workspace-id>",
	Short: "Print the most recent events in chronological order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		events, err := EventLog.Read(ws.Path, readLimit)
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		printEvents(events)
		return nil
	},
}

var (
	queryType       string
	queryActorType  string
	queryActorID    string
	queryDataPrefix string
	queryMinutes    int
	queryLimit      int
)

var eventsQueryCmd = &cobra.Command{
	Use:   "query <workspace-id>",
	Short: "Filter the event log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		events, err := EventLog.Query(ws.Path, observability.QueryFilter{
			Type:       queryType,
			ActorType:  models.ActorType(queryActorType),
			ActorID:    queryActorID,
			DataPrefix: queryDataPrefix,
			MinutesAgo: queryMinutes,
			Limit:      queryLimit,
		})
		if err != nil {
			return fmt.Errorf("querying events: %w", err)
		}
		printEvents(events)
		return nil
	},
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail <workspace-id>",
	Short: "Follow the event log and deliver matching subscriptions",
	Long: `Watch the workspace event log and print batched notifications for each
matching subscription as new events arrive. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		dispatcher := observability.NewDispatcher(ws.Path, SubReg,
			func(sub *models.Subscription, events []*models.WorkspaceEvent) {
				fmt.Printf("[%s] %d event(s)\n", sub.ID, len(events))
				printEvents(events)
			})

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			dispatcher.Close()
		}()

		fmt.Printf("Tailing events for %s (Ctrl-C to stop)\n", ws.ID)
		return dispatcher.Run()
	},
}

func printEvents(events []*models.WorkspaceEvent) {
	for _, e := range events {
		line := fmt.Sprintf("%s  %-20s  %s/%s",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Actor.Type, e.Actor.ID)
		if len(e.Data) > 0 {
			if payload, err := json.Marshal(e.Data); err == nil {
				line += "  " + string(payload)
			}
		}
		fmt.Println(line)
	}
}

func init() {
	eventsAppendCmd.Flags().StringVar(&appendActorID, "actor", "", "Actor id")
	eventsAppendCmd.Flags().StringVar(&appendActorType, "actor-type", "user", "Actor type (user, agent, system)")
	eventsAppendCmd.Flags().StringVar(&appendDataJSON, "data", "", "Event payload as JSON")
	eventsReadCmd.Flags().IntVar(&readLimit, "limit", 20, "Maximum number of events")
	eventsQueryCmd.Flags().StringVar(&queryType, "type", "", "Exact event type")
	eventsQueryCmd.Flags().StringVar(&queryActorType, "actor-type", "", "Actor type")
	eventsQueryCmd.Flags().StringVar(&queryActorID, "actor", "", "Actor id")
	eventsQueryCmd.Flags().StringVar(&queryDataPrefix, "data-prefix", "", "Payload filter as key:prefix")
	eventsQueryCmd.Flags().IntVar(&queryMinutes, "minutes", 0, "Only events newer than this many minutes")
	eventsQueryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum number of events")

	eventsCmd.AddCommand(eventsAppendCmd)
	eventsCmd.AddCommand(eventsReadCmd)
	eventsCmd.AddCommand(eventsQueryCmd)
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}
