// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders tabular report data with the house styling. In machine
// personality the table degrades to tab-separated lines.
type Table struct {
	headers   []string
	rows      [][]string
	highlight int
}

// NewTable creates a table with the given column headers
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, highlight: -1}
}

// AddRow appends a data row. Missing cells render empty; extra cells
// are dropped.
func (t *Table) AddRow(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// Highlight marks a row (by index) for emphasized rendering
func (t *Table) Highlight(row int) *Table {
	t.highlight = row
	return t
}

// Render returns the formatted table as a string
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}
	if GetPersonality().Level == PersonalityMachine {
		return t.renderPlain()
	}

	widths := t.columnWidths()

	var b strings.Builder
	for i, h := range t.headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(Styles.TableHeader.Render(pad(h, widths[i])))
	}
	b.WriteByte('\n')

	total := 0
	for i, w := range widths {
		if i > 0 {
			total += 2
		}
		total += w
	}
	b.WriteString(Styles.TableRule.Render(strings.Repeat("─", total)))
	b.WriteByte('\n')

	for r, row := range t.rows {
		for i := range t.headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i > 0 {
				b.WriteString("  ")
			}
			padded := pad(cell, widths[i])
			if r == t.highlight {
				b.WriteString(Styles.Highlight.Render(padded))
			} else {
				b.WriteString(padded)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (t *Table) renderPlain() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.headers, "\t"))
	b.WriteByte('\n')
	for _, row := range t.rows {
		cells := row
		if len(cells) > len(t.headers) {
			cells = cells[:len(t.headers)]
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func pad(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
