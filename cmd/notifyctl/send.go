package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/opensearch-project/notifications-sub002/internal/client"
	"github.com/opensearch-project/notifications-sub002/internal/dispatch"
	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/sanitize"
	"github.com/opensearch-project/notifications-sub002/internal/settings"
	"github.com/opensearch-project/notifications-sub002/internal/throttle"
	"github.com/opensearch-project/notifications-sub002/internal/transport"
)

func sendCmd() *cobra.Command {
	var (
		title      string
		text       string
		html       string
		feature    string
		refID      string
		channelIDs []string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification to one or more channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			msg, err := model.NewMessageContent(title, text)
			if err != nil {
				return err
			}
			if html != "" {
				msg = msg.WithHTML(html)
			}

			dispatcher, err := buildDispatcher(logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			resp, err := dispatcher.Send(ctx, &dispatch.SendRequest{
				Source: model.EventSource{
					Title:       title,
					ReferenceID: refID,
					Feature:     model.Feature(feature),
				},
				Message:   msg,
				ConfigIDs: channelIDs,
			})
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), outputFmt, resp)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Notification title (required)")
	cmd.Flags().StringVar(&text, "text", "", "Notification text body (required)")
	cmd.Flags().StringVar(&html, "html", "", "Optional HTML body for email channels")
	cmd.Flags().StringVar(&feature, "feature", string(model.FeatureAlerting), "Originating feature: alerting, index_management, reports")
	cmd.Flags().StringVar(&refID, "ref", "", "Caller reference ID stored with the event")
	cmd.Flags().StringSliceVar(&channelIDs, "channel", nil, "Channel config ID to deliver to (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall send timeout")
	cobra.CheckErr(cmd.MarkFlagRequired("title"))
	cobra.CheckErr(cmd.MarkFlagRequired("text"))
	cobra.CheckErr(cmd.MarkFlagRequired("channel"))
	return cmd
}

// buildDispatcher assembles the full pipeline against the configs file.
func buildDispatcher(logger *zap.Logger) (*dispatch.Dispatcher, error) {
	cfg, err := settings.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	holder, err := settings.NewHolder(cfg)
	if err != nil {
		return nil, err
	}

	denyList, err := client.NewDenyList(cfg.HostDenyList, nil)
	if err != nil {
		return nil, err
	}

	configs, err := loadConfigStore(configsPath)
	if err != nil {
		return nil, err
	}

	sanitizer := sanitize.New(cfg.Email.SanitizeAllowList, cfg.Email.SanitizeDenyList)
	sender := transport.NewSender(logger, holder,
		client.NewHTTPClient(cfg.HTTP), denyList, client.DefaultAWSFactory{}, sanitizer)

	return dispatch.NewDispatcher(logger, holder, configs,
		dispatch.NewMemoryEventStore(), sender, throttle.New(holder)), nil
}

// loadConfigStore reads a YAML map of config ID to channel config.
func loadConfigStore(path string) (*dispatch.MemoryConfigStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configs %s: %w", path, err)
	}
	var raw map[string]model.NotificationConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing configs %s: %w", path, err)
	}

	store := dispatch.NewMemoryConfigStore()
	for id, config := range raw {
		store.Put(id, config)
	}
	return store, nil
}
