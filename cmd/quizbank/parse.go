package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgarciamed/quizbank/internal/parser"
)

func newParseCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse raw pasted question text into a new-questions file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(inputPath, outputPath)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "crudo.txt", "Raw question text file")
	cmd.Flags().StringVar(&outputPath, "output", "nuevas.json", "Output JSON file")
	return cmd
}

func runParse(inputPath, outputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading raw questions: %w", err)
	}
	text := string(raw)
	if len(text) == 0 {
		return fmt.Errorf("%s is empty", inputPath)
	}

	format := parser.DetectFormat(text)
	color.Cyan("Detected format: %s", format)
	if format == parser.FormatLegacy {
		color.Yellow("Tip: separate questions with blank lines for more reliable parsing.")
	}

	records := parser.Parse(text, nil)

	warnings := parser.Validate(records)
	if warnings.MissingStem > 0 {
		color.Yellow("Warning: %d questions have an empty stem", warnings.MissingStem)
	}
	if warnings.FewOptions > 0 {
		color.Yellow("Warning: %d questions have fewer than 2 options", warnings.FewOptions)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding questions: %w", err)
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	color.Green("Parsed %d questions into %s", len(records), outputPath)
	fmt.Println("Next step: run 'quizbank check'")
	return nil
}
