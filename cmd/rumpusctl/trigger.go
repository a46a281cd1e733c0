package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rumpus-tracker/internal/kafka"
)

var triggerFlags struct {
	brokers []string
	topic   string
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <watch>",
	Short: "Queue a poll of a watch",
	Long: `Publish a poll request for a watch to the tracker's request topic.
The tracker's consumer group polls the watch on its next batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)

	triggerCmd.Flags().StringSliceVar(&triggerFlags.brokers, "brokers", nil, "Kafka brokers (default from config)")
	triggerCmd.Flags().StringVar(&triggerFlags.topic, "topic", "", "request topic (default from config)")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(triggerFlags.brokers) > 0 {
		cfg.Kafka.Brokers = triggerFlags.brokers
	}
	if triggerFlags.topic != "" {
		cfg.Kafka.RequestTopic = triggerFlags.topic
	}

	publisher, err := kafka.NewPublisher(&cfg.Kafka, newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("connecting to kafka: %w", err)
	}
	defer publisher.Close()

	watch := args[0]
	if err := publisher.RequestPoll(cmd.Context(), watch, "rumpusctl"); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued poll of %s on %s\n", watch, cfg.Kafka.RequestTopic)
	return nil
}
