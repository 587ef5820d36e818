package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opensearch-project/notifications-sub002/internal/model"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a channel configs file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(configsPath)
			if err != nil {
				return fmt.Errorf("reading configs %s: %w", configsPath, err)
			}
			var raw map[string]model.NotificationConfig
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return fmt.Errorf("parsing configs %s: %w", configsPath, err)
			}

			ids := make([]string, 0, len(raw))
			for id := range raw {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			failures := 0
			for _, id := range ids {
				if err := validateConfig(raw[id], raw); err != nil {
					failures++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK    %s (%s)\n", id, raw[id].ConfigType)
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d configs invalid", failures, len(raw))
			}
			return nil
		},
	}
}

// validateConfig checks one channel config the way the dispatcher would
// before delivery, including email child references within the same file.
func validateConfig(config model.NotificationConfig, all map[string]model.NotificationConfig) error {
	switch config.ConfigType {
	case model.ConfigTypeSlack:
		if config.Slack == nil {
			return fmt.Errorf("slack channel data is missing")
		}
		_, err := model.NewSlackDestination(config.Slack.URL)
		return err
	case model.ConfigTypeChime:
		if config.Chime == nil {
			return fmt.Errorf("chime channel data is missing")
		}
		_, err := model.NewChimeDestination(config.Chime.URL)
		return err
	case model.ConfigTypeMicrosoftTeams:
		if config.MicrosoftTeams == nil {
			return fmt.Errorf("microsoft_teams channel data is missing")
		}
		_, err := model.NewMicrosoftTeamsDestination(config.MicrosoftTeams.URL)
		return err
	case model.ConfigTypeWebhook:
		if config.Webhook == nil {
			return fmt.Errorf("webhook channel data is missing")
		}
		_, err := model.NewCustomWebhookDestination(config.Webhook.URL, config.Webhook.HeaderParams, config.Webhook.Method)
		return err
	case model.ConfigTypeSNS:
		if config.SNS == nil {
			return fmt.Errorf("sns channel data is missing")
		}
		_, err := model.NewSNSDestination(config.SNS.TopicARN, config.SNS.RoleARN)
		return err
	case model.ConfigTypeEmail:
		return validateEmailConfig(config, all)
	case model.ConfigTypeSMTPAccount:
		if config.SMTPAccount == nil {
			return fmt.Errorf("smtp_account data is missing")
		}
		acc := config.SMTPAccount
		_, err := model.NewSMTPDestination(config.Name, acc.Host, acc.Port, acc.Method, acc.FromAddress, acc.FromAddress)
		return err
	case model.ConfigTypeSESAccount:
		if config.SESAccount == nil {
			return fmt.Errorf("ses_account data is missing")
		}
		acc := config.SESAccount
		_, err := model.NewSESDestination(acc.FromAddress, acc.FromAddress, acc.Region, acc.RoleARN)
		return err
	case model.ConfigTypeEmailGroup:
		if config.EmailGroup == nil {
			return fmt.Errorf("email_group data is missing")
		}
		for _, r := range config.EmailGroup.Recipients {
			if err := model.ValidateEmail(r); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown config type %q", config.ConfigType)
	}
}

func validateEmailConfig(config model.NotificationConfig, all map[string]model.NotificationConfig) error {
	if config.Email == nil {
		return fmt.Errorf("email channel data is missing")
	}
	account, ok := all[config.Email.SenderAccountID]
	if !ok {
		return fmt.Errorf("sender account %q not found", config.Email.SenderAccountID)
	}
	if account.ConfigType != model.ConfigTypeSMTPAccount && account.ConfigType != model.ConfigTypeSESAccount {
		return fmt.Errorf("sender account %q has type %q", config.Email.SenderAccountID, account.ConfigType)
	}
	for _, groupID := range config.Email.EmailGroupIDs {
		group, ok := all[groupID]
		if !ok {
			return fmt.Errorf("email group %q not found", groupID)
		}
		if group.ConfigType != model.ConfigTypeEmailGroup {
			return fmt.Errorf("email group %q has type %q", groupID, group.ConfigType)
		}
	}
	for _, r := range config.Email.Recipients {
		if err := model.ValidateEmail(r); err != nil {
			return err
		}
	}
	return nil
}
