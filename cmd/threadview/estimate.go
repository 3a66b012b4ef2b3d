package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/threadview/pkg/events"
	"github.com/go-go-golems/threadview/pkg/progress"
)

func newEstimateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate <file>",
		Short: "Stream a file through the progress estimator and print every progress change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunkSize, err := cmd.Flags().GetInt("chunk-size")
			if err != nil {
				return err
			}
			progressTemplate, err := cmd.Flags().GetString("template")
			if err != nil {
				return err
			}

			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			milestones, err := loadMilestones()
			if err != nil {
				return err
			}
			return estimate(cmd.OutOrStdout(), string(b), milestones, chunkSize, progressTemplate)
		},
	}
	cmd.Flags().Int("chunk-size", 16, "Runes per streamed chunk")
	cmd.Flags().String("template", "", "Go template rendering progress lines")

	return cmd
}

// chunks splits s into pieces of at most size runes.
func chunks(s string, size int) []string {
	var ret []string
	runes := []rune(s)
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		ret = append(ret, string(runes[:n]))
		runes = runes[n:]
	}
	return ret
}

func estimate(w io.Writer, content string, milestones progress.Milestones, chunkSize int, progressTemplate string) error {
	if chunkSize <= 0 {
		return errors.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	tmpl, err := events.NewProgressTemplate(progressTemplate)
	if err != nil {
		return err
	}

	e := progress.NewEstimator(progress.WithMilestones(milestones))
	e.Begin()

	printState := func(offset int, state progress.State) error {
		line, err := events.RenderProgress(tmpl, state)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%6d %s\n", offset, line)
		return err
	}

	last := e.Update("", true)
	if err := printState(0, last); err != nil {
		return err
	}
	acc := ""
	offset := 0
	for _, c := range chunks(content, chunkSize) {
		acc += c
		offset += len([]rune(c))
		state := e.Update(acc, true)
		if state != last {
			if err := printState(offset, state); err != nil {
				return err
			}
			last = state
		}
	}

	return printState(offset, e.Update(acc, false))
}
