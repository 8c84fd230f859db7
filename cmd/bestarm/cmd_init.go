// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bestarm/cmd/bestarm/config"
	"github.com/AleutianAI/bestarm/pkg/ux"
)

// runInit executes the "bestarm init" command.
func runInit(cmd *cobra.Command, args []string) {
	path := "scenario.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		fail("init scenario", fmt.Errorf("%s already exists", path))
	}

	if err := config.Save(path, config.DefaultScenario()); err != nil {
		fail("init scenario", err)
	}

	ux.Success(fmt.Sprintf("wrote starter scenario to %s", path))
	ux.Info(fmt.Sprintf("Edit the true rates, then try: bestarm run --scenario %s", path))
}
