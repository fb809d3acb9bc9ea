package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"
)

//go:embed example_queries.txt
var examplesText string

// example is one block of example_queries.txt: a "# topic: title" line and
// the query lines under it.
type example struct {
	topic string
	title string
	query string
}

// parseExamples splits the embedded text into blocks separated by blank
// lines. Comment blocks without a query, such as the file header, are dropped.
func parseExamples(text string) []example {
	var examples []example
	for _, block := range strings.Split(strings.TrimSpace(text), "\n\n") {
		lines := strings.Split(block, "\n")
		head, ok := strings.CutPrefix(lines[0], "# ")
		if !ok || len(lines) < 2 || strings.HasPrefix(lines[1], "#") {
			continue
		}
		topic, title, _ := strings.Cut(head, ":")
		examples = append(examples, example{
			topic: strings.TrimSpace(topic),
			title: strings.TrimSpace(title),
			query: strings.Join(lines[1:], "\n"),
		})
	}
	return examples
}

func examplesCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "example-queries",
		Usage: "show example tree-sitter queries",
		Description: "Print example queries for the bundled grammars, one block per example.\n\n" +
			"Examples:\n" +
			"  tsmatch example-queries                   # everything\n" +
			"  tsmatch example-queries --topic rust      # rust only\n" +
			"  tsmatch example-queries --topic predicates",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "topic",
				Usage: "only print examples for this language or topic (repeatable)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			topics := cmd.StringSlice("topic")
			if len(topics) == 0 {
				_, err := fmt.Fprint(stdout, examplesText)
				return err
			}
			return writeExamples(stdout, parseExamples(examplesText), topics)
		},
	}
}

func writeExamples(w io.Writer, examples []example, topics []string) error {
	want := make(map[string]bool, len(topics))
	for _, t := range topics {
		want[strings.ToLower(t)] = true
	}

	written := 0
	for _, ex := range examples {
		if !want[ex.topic] {
			continue
		}
		if written > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "# %s: %s\n%s\n", ex.topic, ex.title, ex.query); err != nil {
			return err
		}
		written++
	}
	if written == 0 {
		return fmt.Errorf("no examples for %s", strings.Join(topics, ", "))
	}
	return nil
}
