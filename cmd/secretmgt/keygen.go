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
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wso2/identity-secret-mgt/pkg/encryption/aesgcm"
)

type keygenOptions struct {
	out            string
	force          bool
	keyringUser    string
	keyringService string
}

func newKeygenCmd() *cobra.Command {
	opts := &keygenOptions{}
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random AES-256 key",
		Long: "Writes 32 random bytes to a key file readable only by the owner. " +
			"With --keyring-user the key is stored in the OS keyring instead.",
		Example: `secretmgt keygen --out ./data/keys/key-v2.bin
secretmgt keygen --keyring-user key-v2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runKeygen(opts); err != nil {
				return err
			}
			if opts.keyringUser != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Key stored in keyring entry %q\n", opts.keyringUser)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Key written to %s\n", opts.out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Path of the key file to create")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing key file")
	cmd.Flags().StringVar(&opts.keyringUser, "keyring-user", "", "Store the key in the OS keyring under this entry")
	cmd.Flags().StringVar(&opts.keyringService, "keyring-service", aesgcm.DefaultKeyringService, "OS keyring service name")
	return cmd
}

func runKeygen(opts *keygenOptions) error {
	if (opts.out == "") == (opts.keyringUser == "") {
		return errors.New("exactly one of --out or --keyring-user must be specified")
	}

	key := make([]byte, aesgcm.AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	defer clear(key)

	if opts.keyringUser != "" {
		return aesgcm.StoreInKeyring(opts.keyringService, opts.keyringUser, key)
	}

	if err := os.MkdirAll(filepath.Dir(opts.out), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if opts.force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(opts.out, flags, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("key file %s already exists (use --force to overwrite)", opts.out)
		}
		return fmt.Errorf("failed to create key file: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Chmod(0600); err != nil {
		f.Close()
		return fmt.Errorf("failed to restrict key file permissions: %w", err)
	}
	return f.Close()
}
