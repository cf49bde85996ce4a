// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/packfwd/relay/lib/relayconfig"
	"gopkg.in/yaml.v3"
)

// printConfig prints cfg's secret-redacted YAML representation to
// stdout for the --print-config flag.
func printConfig(cfg *relayconfig.Config) error {
	encoded, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}
	fmt.Print(string(encoded))
	return nil
}
