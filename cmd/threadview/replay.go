package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/threadview/pkg/chat"
	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/events"
	"github.com/go-go-golems/threadview/pkg/helpers"
	"github.com/go-go-golems/threadview/pkg/progress"
	"github.com/go-go-golems/threadview/pkg/transcript"
	"github.com/go-go-golems/threadview/pkg/ui"
)

const (
	outputTUI = "tui"
	outputRaw = "raw"
)

func newReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a scripted conversation and show its thread and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := transcript.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			return replay(cmd.Context(), script, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("output", "", "Output (text, json, yaml, raw, tui), tui when stdout is a terminal")
	cmd.Flags().String("progress-template", "", "Go template rendering progress lines in text output")
	cmd.Flags().Bool("deltas", false, "Print answer chunks as they stream in text output")
	cmd.Flags().String("export-dir", "", "Write the thread as JSON into this directory after every answer")
	cmd.Flags().String("export-format", chat.DefaultExportFormat, "Template of exported file paths")
	cobra.CheckErr(viper.BindPFlags(cmd.Flags()))

	return cmd
}

func loadMilestones() (progress.Milestones, error) {
	if f := viper.GetString("milestones-file"); f != "" {
		return progress.LoadMilestonesFromFile(f)
	}
	return progress.DefaultMilestones(), nil
}

func newSession(script *transcript.Script, sink events.EventSink) (*chat.Session, error) {
	milestones, err := loadMilestones()
	if err != nil {
		return nil, err
	}
	siblingDefault, err := conversation.ParseSiblingDefault(viper.GetString("sibling-default"))
	if err != nil {
		return nil, err
	}

	options := []chat.SessionOption{
		chat.WithSink(sink),
		chat.WithMilestones(milestones),
		chat.WithSiblingDefault(siblingDefault),
		chat.WithOpeningStatement(script.OpeningStatement),
	}
	if script.ConversationID != "" {
		options = append(options, chat.WithConversationID(script.ConversationID))
	}
	if encoding := viper.GetString("tokenizer-encoding"); encoding != "" {
		counter, err := chat.NewTiktokenCounter(encoding)
		if err != nil {
			return nil, err
		}
		options = append(options, chat.WithTokenCounter(counter))
	}
	if dir := viper.GetString("export-dir"); dir != "" {
		options = append(options, chat.WithExport(dir, viper.GetString("export-format")))
	}

	return chat.NewSession(options...), nil
}

func outputFormat(w io.Writer) string {
	if output := viper.GetString("output"); output != "" {
		return output
	}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return outputTUI
	}
	return string(events.PrinterFormatText)
}

func replay(ctx context.Context, script *transcript.Script, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	router, err := events.NewEventRouter(
		events.WithLogger(helpers.NewWatermill(log.Logger)),
		events.WithVerbose(viper.GetBool("verbose")),
	)
	if err != nil {
		return errors.Wrap(err, "could not create event router")
	}
	defer func() {
		_ = router.Close()
	}()

	session, err := newSession(script, router.NewSink(events.TopicChat))
	if err != nil {
		return err
	}

	output := outputFormat(w)
	log.Debug().Str("output", output).Str("conversation_id", session.ID()).Msg("replaying script")

	if output == outputTUI {
		return replayTUI(ctx, router, session, script)
	}

	switch output {
	case outputRaw:
		router.AddHandler("raw", events.TopicChat, router.DumpRawEvents(w))
	default:
		printer, err := events.PrinterFunc(w, events.PrinterOptions{
			Format:           events.PrinterFormat(output),
			ProgressTemplate: viper.GetString("progress-template"),
			Deltas:           viper.GetBool("deltas"),
		})
		if err != nil {
			return err
		}
		router.AddHandler("printer", events.TopicChat, printer)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		return transcript.Run(ctx, session, script)
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	if output != string(events.PrinterFormatText) {
		return nil
	}
	_, err = fmt.Fprintln(w, "\n=== Visible path ===")
	if err != nil {
		return err
	}
	for _, entry := range events.NewPathEntries(session.Snapshot()) {
		if _, err := fmt.Fprintln(w, events.FormatPathEntry(entry)); err != nil {
			return err
		}
	}
	return nil
}

func replayTUI(ctx context.Context, router *events.EventRouter, session *chat.Session, script *transcript.Script) error {
	options := []tea.ProgramOption{tea.WithAltScreen()}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		tty, err := ui.OpenTTY()
		if err != nil {
			return errors.Wrap(err, "could not open terminal")
		}
		defer func() {
			_ = tty.Close()
		}()
		options = append(options, tea.WithInput(tty))
	}

	title := "THREADVIEW " + session.ID()
	p := tea.NewProgram(ui.NewModel(session, ui.WithTitle(title)), options...)
	router.AddHandler("ui", events.TopicChat, ui.ForwardFunc(p))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg := errgroup.Group{}
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		<-router.Running()
		err := transcript.Run(ctx, session, script)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		p.Send(ui.ReplayDoneMsg{Err: err})
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})

	return eg.Wait()
}
