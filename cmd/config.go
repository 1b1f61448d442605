/*
Copyright 2024 Boreal Insurance PGI Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"github.com/spf13/cobra"
)

const redacted = "********"

// configCommands prints the computed configuration with secrets masked.
func configCommands(app *pgiInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the computed configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *app.cnf
			if cfg.Server.SecretKey != "" {
				cfg.Server.SecretKey = redacted
			}
			if cfg.DataSource.Dns != "" {
				cfg.DataSource.Dns = redacted
			}
			if cfg.Redis.Dns != "" {
				cfg.Redis.Dns = redacted
			}
			if cfg.Notification.Slack.WebhookUrl != "" {
				cfg.Notification.Slack.WebhookUrl = redacted
			}
			return printJSON(cfg)
		},
	}
}
