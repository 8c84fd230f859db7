// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package main implements the bestarm command line interface.
//
// bestarm simulates fixed-confidence best-arm identification on
// Bernoulli bandits: single runs, replication studies, and paired
// adaptive-versus-uniform comparisons, all driven by scenario files.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitError)
	}
}
