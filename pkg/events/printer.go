package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/glazed/pkg/helpers/templating"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/threadview/pkg/progress"
)

type PrinterFormat string

const (
	PrinterFormatText PrinterFormat = "text"
	PrinterFormatJSON PrinterFormat = "json"
	PrinterFormatYAML PrinterFormat = "yaml"
)

// DefaultProgressTemplate renders a progress event as a one line bar.
const DefaultProgressTemplate = `{{ if .Active }}retrieving, please wait [{{ .Bar }}] {{ .Progress | printf "%3d" }}%{{ else }}done [{{ .Progress }}%]{{ end }}`

const progressBarWidth = 20

// ProgressView is the data a progress template is rendered with.
type ProgressView struct {
	Progress int
	Active   bool
	Bar      string
}

func NewProgressView(s progress.State) ProgressView {
	filled := s.Progress * progressBarWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	return ProgressView{
		Progress: s.Progress,
		Active:   s.Active,
		Bar:      strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled),
	}
}

type PrinterOptions struct {
	Format           PrinterFormat
	ProgressTemplate string
	// Deltas prints partial content as it streams in text mode
	Deltas bool
}

// PrinterFunc returns a watermill handler that prints the events of a session to w.
func PrinterFunc(w io.Writer, options PrinterOptions) (func(msg *message.Message) error, error) {
	switch options.Format {
	case PrinterFormatJSON, PrinterFormatYAML:
		return structuredPrinterFunc(w, options.Format), nil
	case "", PrinterFormatText:
	default:
		return nil, errors.Errorf("unknown output format %q", options.Format)
	}

	tmpl, err := NewProgressTemplate(options.ProgressTemplate)
	if err != nil {
		return nil, err
	}

	return textPrinterFunc(w, tmpl, options.Deltas), nil
}

// NewProgressTemplate parses a progress template, DefaultProgressTemplate when s is empty. The
// glazed template functions are available.
func NewProgressTemplate(s string) (*template.Template, error) {
	if s == "" {
		s = DefaultProgressTemplate
	}
	tmpl, err := templating.CreateTemplate("progress").Parse(s)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse progress template")
	}
	return tmpl, nil
}

func RenderProgress(tmpl *template.Template, state progress.State) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, NewProgressView(state)); err != nil {
		return "", errors.Wrap(err, "could not render progress")
	}
	return sb.String(), nil
}

func textPrinterFunc(w io.Writer, tmpl *template.Template, deltas bool) func(msg *message.Message) error {
	inDelta := false

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("could not decode event")
			return nil
		}

		endDelta := func() error {
			if !inDelta {
				return nil
			}
			inDelta = false
			_, err := fmt.Fprintln(w)
			return err
		}

		switch p_ := e.(type) {
		case *EventPartial:
			if deltas {
				inDelta = true
				_, err = fmt.Fprint(w, p_.Delta)
				return err
			}

		case *EventProgress:
			if err := endDelta(); err != nil {
				return err
			}
			line, err := RenderProgress(tmpl, p_.State)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, line)
			return err

		case *EventStreamStart:
			if err := endDelta(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "--- answer %s started ---\n", shortID(p_.Metadata_.NodeID.String()))
			return err

		case *EventStreamEnd:
			if err := endDelta(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "--- answer %s %s ---\n", shortID(p_.Metadata_.NodeID.String()), p_.Status)
			return err

		case *EventInterrupt:
			if err := endDelta(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "--- answer %s stopped ---\n", shortID(p_.Metadata_.NodeID.String()))
			return err

		case *EventPath:
			if err := endDelta(); err != nil {
				return err
			}
			for _, entry := range p_.Path {
				if _, err := fmt.Fprintln(w, FormatPathEntry(entry)); err != nil {
					return err
				}
			}

		case *EventFeedback:
			rating := "none"
			if p_.Feedback != nil && p_.Feedback.Rating != "" {
				rating = string(p_.Feedback.Rating)
			}
			_, err = fmt.Fprintf(w, "feedback on %s: %s\n", shortID(p_.Metadata_.NodeID.String()), rating)
			return err

		case *EventError:
			_, err = fmt.Fprintf(w, "error: %s\n", p_.ErrorString)
			return err
		}

		return nil
	}
}

func structuredPrinterFunc(w io.Writer, format PrinterFormat) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		var v map[string]interface{}
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			return err
		}

		if format == PrinterFormatJSON {
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(b))
			return err
		}

		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "---\n%s", b)
		return err
	}
}

// FormatPathEntry renders a visible message on one line, with its "< 2/3 >" pager when it has
// siblings.
func FormatPathEntry(entry PathEntry) string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(string(entry.Role))
	if entry.SiblingCount > 1 {
		fmt.Fprintf(&sb, " %d/%d", entry.SiblingIndex+1, entry.SiblingCount)
	}
	sb.WriteString("] ")
	sb.WriteString(strings.TrimRight(entry.Content, "\n"))
	if entry.Status != "" && entry.Status != "completed" {
		fmt.Fprintf(&sb, " (%s)", entry.Status)
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
