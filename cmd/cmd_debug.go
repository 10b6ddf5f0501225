// Copyright 2025 The Placedir Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sangamhq/placedir/classify"
	"github.com/sangamhq/placedir/match"
	"github.com/spf13/cobra"
)

// isTerminal avoids prompting when stdin is piped. If we can't tell,
// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugClassifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify place names from stdin",
	Long: `Reads one place name per line, optionally followed by tab-separated
comma-delimited tags, and prints the name with its label.

$ echo 'Gurdwara Sahib Khalsa Diwan' | placedir debug classify
Gurdwara Sahib Khalsa Diwan		gurdwara
	`,
	Run: func(_ *cobra.Command, _ []string) {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter place names to classify, one per line…")
		}
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := scanner.Text()

			name := line

			var tags []string

			if idx := strings.IndexByte(line, '\t'); idx >= 0 {
				name = line[:idx]
				tags = strings.Split(line[idx+1:], ",")
			}

			label, err := classify.Classify(name, tags, nil)
			if err != nil {
				fmt.Printf("%s\t%q\n", name, err)
			} else {
				fmt.Printf("%s\t\t%s\n", name, label)
			}
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "reading stdin: %v\n", err)
		}
	},
}

var debugNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize strings from stdin",
	Run: func(_ *cobra.Command, _ []string) {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter strings to normalize, one per line…")
		}
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Printf("%s\t\t%s\n", line, match.Normalize(line))
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "reading stdin: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugClassifyCmd)
	debugCmd.AddCommand(debugNormalizeCmd)
}
