/*
 * Copyright (c) 2026, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wso2/identity-secret-mgt/pkg/config"
	"github.com/wso2/identity-secret-mgt/pkg/logger"
)

const (
	RootCmdLiteral = "secretmgt"
	RootCmdExample = `# Run the REST server
secretmgt serve --config config.toml

# Store a secret of tenant wso2.com, prompting for the value
secretmgt secret add sample-secret1 --tenant-domain wso2.com --config config.toml

# Generate a new key file
secretmgt keygen --out ./data/keys/key-v2.bin`
)

// cli carries what every command needs after flag parsing
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           RootCmdLiteral,
		Short:         "Multi-tenant secret management service",
		Long:          "secretmgt stores tenant secrets encrypted at rest and resolves them for trusted callers.",
		Example:       RootCmdExample,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			c.cfg = cfg
			// Commands other than serve keep stdout for their own output
			c.logger = logger.NewLoggerWithWriter(cmd.ErrOrStderr(), logger.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to the TOML configuration file")

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newSecretCmd(c))
	root.AddCommand(newKeygenCmd())
	root.AddCommand(newHashPasswordCmd())
	return root
}
