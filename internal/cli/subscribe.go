package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warren-dev/warren/pkg/models"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Manage event subscriptions",
}

var (
	subAgentID   string
	subAgentName string
	subTypes     []string
	subExclude   []string
	subBatchMS   int
	subOnce      bool
)

var subscribeCreateCmd = &cobra.Command{
	Use:   "create <workspace-id>",
	Short: "Create a subscription for an agent",
	Long: `Register a persisted event filter. Event types may be exact ("file:changed"),
category wildcards ("task:*"), or "*" for every known category wildcard.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if subAgentID == "" {
			return fmt.Errorf("--agent is required")
		}
		if len(subTypes) == 0 {
			return fmt.Errorf("--types is required")
		}
		sub, err := SubReg.Create(ws.Path, &models.Subscription{
			AgentID:       subAgentID,
			AgentName:     subAgentName,
			EventTypes:    subTypes,
			ExcludeActors: subExclude,
			BatchWindowMS: subBatchMS,
			Once:          subOnce,
		})
		if err != nil {
			return fmt.Errorf("creating subscription: %w", err)
		}
		fmt.Printf("Created subscription %s for %s (%s)\n",
			sub.ID, sub.AgentID, strings.Join(sub.EventTypes, ", "))
		return nil
	},
}

var subscribeListCmd = &cobra.Command{
	Use:   "list <workspace-id>",
	Short: "List subscriptions in a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		subs, err := SubReg.List(ws.Path)
		if err != nil {
			return fmt.Errorf("listing subscriptions: %w", err)
		}
		if len(subs) == 0 {
			fmt.Println("No subscriptions.")
			return nil
		}
		for _, s := range subs {
			flags := ""
			if s.Once {
				flags = " [once]"
			}
			fmt.Printf("%s  agent=%s  types=%s%s\n",
				s.ID, s.AgentID, strings.Join(s.EventTypes, ","), flags)
		}
		return nil
	},
}

var subscribeDeleteCmd = &cobra.Command{
	Use:   "delete <workspace-id> <subscription-id>",
	Short: "Delete a subscription",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if err := SubReg.Delete(ws.Path, args[1]); err != nil {
			return fmt.Errorf("deleting subscription: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	subscribeCreateCmd.Flags().StringVar(&subAgentID, "agent", "", "Subscribing agent id")
	subscribeCreateCmd.Flags().StringVar(&subAgentName, "agent-name", "", "Human-readable agent name")
	subscribeCreateCmd.Flags().StringSliceVar(&subTypes, "types", nil, "Event types to match")
	subscribeCreateCmd.Flags().StringSliceVar(&subExclude, "exclude-actors", nil, "Actor ids to ignore")
	subscribeCreateCmd.Flags().IntVar(&subBatchMS, "batch-ms", 0, "Batch window in milliseconds")
	subscribeCreateCmd.Flags().BoolVar(&subOnce, "once", false, "Deliver one batch then delete")

	subscribeCmd.AddCommand(subscribeCreateCmd)
	subscribeCmd.AddCommand(subscribeListCmd)
	subscribeCmd.AddCommand(subscribeDeleteCmd)
	rootCmd.AddCommand(subscribeCmd)
}
