// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a scenario file.
//
// Inputs:
//   - path: Path to a YAML scenario file.
//
// Outputs:
//   - *Scenario: The parsed scenario.
//   - error: Non-nil if the file is unreadable, malformed, or invalid.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}

	return &s, nil
}

// Save writes a scenario as YAML, creating parent directories as needed.
//
// Inputs:
//   - path: Destination file path.
//   - s: Scenario to write.
//
// Outputs:
//   - error: Non-nil if marshaling or writing fails.
func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create scenario dir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write scenario %s: %w", path, err)
	}

	return nil
}
