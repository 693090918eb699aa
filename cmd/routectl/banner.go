// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"rivaas.dev/routing"
)

var gradient = []string{"12", "14", "10", "11"}

// bannerInfo is what serve announces at startup.
type bannerInfo struct {
	Service  string
	Addr     string
	Metrics  string // scrape URL, "" when disabled
	Provider string
	Cache    string // driver, "" when disabled
	Routes   []routing.RouteInfo
}

// colorWriter downsamples or strips ANSI sequences for w's capabilities.
func colorWriter(w io.Writer) *colorprofile.Writer {
	return colorprofile.NewWriter(w, os.Environ())
}

func printBanner(w io.Writer, info bannerInfo) {
	cw := colorWriter(w)

	var art strings.Builder
	for _, line := range figure.NewFigure(info.Service, "", false).Slicify() {
		if strings.TrimSpace(line) == "" {
			art.WriteString("\n")
			continue
		}
		for i, ch := range line {
			art.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(gradient[i%len(gradient)])).
				Bold(true).
				Render(string(ch)))
		}
		art.WriteString("\n")
	}

	category := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(12).PaddingLeft(2)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	addr := info.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "0.0.0.0" + addr
	}
	line := func(name, v string) string {
		if v == "" {
			return label.Render(name+":") + "  " + dim.Render("Disabled") + "\n"
		}
		return label.Render(name+":") + "  " + value.Render(v) + "\n"
	}

	var out strings.Builder
	out.WriteString(category.Render("Routing") + "\n")
	out.WriteString(line("Address", "http://"+addr))
	out.WriteString(line("Routes", fmt.Sprint(len(info.Routes))))
	out.WriteString(line("Cache", info.Cache))
	metrics := info.Metrics
	if metrics != "" {
		metrics += "  " + dim.Render("["+info.Provider+"]")
	}
	out.WriteString(line("Metrics", metrics))

	fmt.Fprintln(cw)
	fmt.Fprint(cw, art.String())
	fmt.Fprintln(cw)
	fmt.Fprint(cw, out.String())
	if len(info.Routes) > 0 {
		fmt.Fprintln(cw)
		renderRoutes(cw, w, info.Routes, 80)
	}
	fmt.Fprintln(cw)
}

// renderRoutes draws routes as a table, capped at the width of terminal
// when it is a TTY.
func renderRoutes(w, terminal io.Writer, routes []routing.RouteInfo, width int) {
	rows := make([][]string, 0, len(routes))
	minWidth := 2 + 3 + 8
	cols := []int{len("Methods"), len("Path"), len("ID"), len("Handler")}
	for _, rt := range routes {
		row := []string{strings.Join(rt.Methods, ","), rt.Path, rt.ID, rt.Handler}
		if rt.Shadowed {
			row[1] += " (shadowed)"
		}
		for i, cell := range row {
			cols[i] = max(cols[i], len(cell))
		}
		rows = append(rows, row)
	}
	for _, c := range cols {
		minWidth += c
	}

	tableWidth := max(minWidth, width)
	if f, ok := terminal.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			tableWidth = min(tableWidth, tw)
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				s = s.Bold(true).Foreground(lipgloss.Color("230"))
			}
			return s
		}).
		Headers("Methods", "Path", "ID", "Handler").
		Rows(rows...).
		Width(max(60, tableWidth))

	fmt.Fprintln(w, t.Render())
}
