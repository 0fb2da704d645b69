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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/wso2/identity-secret-mgt/pkg/models"
	"github.com/wso2/identity-secret-mgt/pkg/tenant"
)

type secretOptions struct {
	tenantDomain string
	username     string
	format       string
	id           string

	value       string
	secretType  string
	description string
}

func newSecretCmd(c *cli) *cobra.Command {
	opts := &secretOptions{}
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets in the configured store",
		Long:  "Runs secret operations directly against the configured store as a user of the given tenant.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.tenantDomain, "tenant-domain", "t", tenant.SuperTenantDomain, "Tenant domain to act on")
	cmd.PersistentFlags().StringVarP(&opts.username, "username", "u", tenant.SuperTenantAdmin, "User recorded as the caller")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "yaml", "Output format (json or yaml)")

	cmd.AddCommand(
		newSecretWriteCmd(c, opts, "add", "Add a new secret"),
		newSecretWriteCmd(c, opts, "replace", "Replace the value of an existing secret"),
		newSecretGetCmd(c, opts),
		newSecretListCmd(c, opts),
		newSecretDeleteCmd(c, opts),
		newSecretResolveCmd(c, opts),
	)
	return cmd
}

// withApp wires the core, attaches the tenant and runs fn
func withApp(cmd *cobra.Command, c *cli, opts *secretOptions, fn func(ctx context.Context, a *app) (any, error)) error {
	format := strings.ToLower(opts.format)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("invalid format: %s (must be 'json' or 'yaml')", opts.format)
	}

	a, err := newApp(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, err := a.tenantContext(cmd.Context(), opts.tenantDomain, opts.username)
	if err != nil {
		return err
	}

	result, err := fn(ctx, a)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return display(cmd.OutOrStdout(), result, format)
}

func newSecretWriteCmd(c *cli, opts *secretOptions, verb, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Long: short + ". The value is taken from --value, or read from standard input " +
			"(prompted without echo on a terminal).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := readValue(cmd, opts.value, cmd.Flags().Changed("value"))
			if err != nil {
				return err
			}
			defer clear(value)

			add := &models.SecretAdd{
				Name:        args[0],
				Value:       value,
				Type:        opts.secretType,
				Description: opts.description,
			}
			return withApp(cmd, c, opts, func(ctx context.Context, a *app) (any, error) {
				if verb == "add" {
					return a.manager.AddSecret(ctx, add)
				}
				return a.manager.ReplaceSecret(ctx, add)
			})
		},
	}
	cmd.Flags().StringVar(&opts.value, "value", "", "Secret value (prefer standard input to keep it out of shell history)")
	cmd.Flags().StringVar(&opts.secretType, "type", "", "Secret type")
	cmd.Flags().StringVar(&opts.description, "description", "", "Secret description")
	return cmd
}

func newSecretGetCmd(c *cli, opts *secretOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [name]",
		Short: "Show the metadata of a secret by name or --id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := nameOrID(args, opts.id)
			if err != nil {
				return err
			}
			return withApp(cmd, c, opts, func(ctx context.Context, a *app) (any, error) {
				if name != "" {
					return a.manager.GetSecret(ctx, name)
				}
				return a.manager.GetSecretByID(ctx, opts.id)
			})
		},
	}
	cmd.Flags().StringVar(&opts.id, "id", "", "Secret id")
	return cmd
}

func newSecretListCmd(c *cli, opts *secretOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the secrets of the tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, opts, func(ctx context.Context, a *app) (any, error) {
				return a.manager.GetSecrets(ctx)
			})
		},
	}
}

func newSecretDeleteCmd(c *cli, opts *secretOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a secret by name or --id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := nameOrID(args, opts.id)
			if err != nil {
				return err
			}
			err = withApp(cmd, c, opts, func(ctx context.Context, a *app) (any, error) {
				if name != "" {
					return nil, a.manager.DeleteSecret(ctx, name)
				}
				return nil, a.manager.DeleteSecretByID(ctx, opts.id)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Secret deleted")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.id, "id", "", "Secret id")
	return cmd
}

func newSecretResolveCmd(c *cli, opts *secretOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [name]",
		Short: "Print the plaintext of a secret by name or --id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := nameOrID(args, opts.id)
			if err != nil {
				return err
			}
			return withApp(cmd, c, opts, func(ctx context.Context, a *app) (any, error) {
				if name != "" {
					return a.resolver.GetResolvedSecret(ctx, name)
				}
				return a.resolver.GetResolvedSecretByID(ctx, opts.id)
			})
		},
	}
	cmd.Flags().StringVar(&opts.id, "id", "", "Secret id")
	return cmd
}

func nameOrID(args []string, id string) (string, error) {
	switch {
	case len(args) == 1 && id != "":
		return "", errors.New("cannot specify both a name and --id")
	case len(args) == 1:
		return args[0], nil
	case id != "":
		return "", nil
	default:
		return "", errors.New("either a name or --id must be specified")
	}
}

// readValue returns the flag value when set, otherwise reads standard input:
// a terminal is prompted without echo, a pipe is read to EOF.
func readValue(cmd *cobra.Command, flagValue string, set bool) ([]byte, error) {
	if set {
		if flagValue == "" {
			return nil, errors.New("--value must not be empty")
		}
		return []byte(flagValue), nil
	}

	return readInput(cmd, "secret value")
}

// readInput prompts for a hidden line on a terminal, or reads all of stdin.
func readInput(cmd *cobra.Command, what string) ([]byte, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Enter %s: ", what)
		value, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", what, err)
		}
		return value, nil
	}

	value, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	value = bytes.TrimRight(value, "\r\n")
	if len(value) == 0 {
		return nil, fmt.Errorf("no %s given on standard input", what)
	}
	return value, nil
}

func display(w io.Writer, v any, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case "json":
		out, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			out = append(out, '\n')
		}
	default:
		out, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(out)
	return err
}
