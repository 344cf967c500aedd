// Package notify delivers reconciliation reports by email or webhook.
// Delivery failures are reported to the caller but never change the report.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"golang.org/x/sync/errgroup"
)

// Message is one rendered report ready for delivery.
type Message struct {
	Subject string
	Body    string
	Source  string
	Report  *models.Report
}

// Notifier delivers a message over one channel.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError wraps a failure to deliver over a channel.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver report via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewMessage renders report for source.
func NewMessage(source string, report *models.Report) Message {
	subject := "Course catalog matches reference"
	if n := report.TotalDiffs(); n > 0 {
		subject = fmt.Sprintf("Course catalog: %d difference%s found", n, plural(n))
	}
	if source != "" {
		subject += " (" + source + ")"
	}
	return Message{
		Subject: subject,
		Body:    RenderText(report),
		Source:  source,
		Report:  report,
	}
}

// RenderText formats report for people.
func RenderText(report *models.Report) string {
	var b strings.Builder

	total := report.TotalDiffs()
	if total == 0 {
		b.WriteString("No differences found.\n")
	} else {
		fmt.Fprintf(&b, "%d difference%s across %d term%s.\n", total, plural(total), len(report.Terms), plural(len(report.Terms)))
		counts := report.CountByType()
		var parts []string
		for _, t := range models.DiffTypes {
			if counts[t] > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", t, counts[t]))
			}
		}
		if len(parts) > 0 {
			b.WriteString(strings.Join(parts, ", ") + "\n")
		}
	}
	if !report.ComparedAt.IsZero() {
		fmt.Fprintf(&b, "Compared at %s\n", report.ComparedAt.UTC().Format("2006-01-02 15:04 MST"))
	}

	for _, term := range report.Terms {
		b.WriteString("\n")
		name := term.Name
		if name == "" {
			name = "(no fetched term)"
		}
		if term.ValidKey != "" && term.ValidKey != term.Name {
			fmt.Fprintf(&b, "%s [reference: %s]\n", name, term.ValidKey)
		} else {
			b.WriteString(name + "\n")
		}
		if term.DiffCount == 0 {
			b.WriteString("  no differences\n")
			continue
		}
		for _, d := range term.Diffs {
			b.WriteString("  " + describeDiff(d) + "\n")
		}
	}
	return b.String()
}

func describeDiff(d models.DiffEntry) string {
	switch d.Type {
	case models.DiffMissing:
		return fmt.Sprintf("missing: %s%s", describeCourse(d.Course), times(d.Count))
	case models.DiffExtra:
		return fmt.Sprintf("extra: %s%s", describeCourse(d.Course), times(d.Count))
	case models.DiffCountMismatch:
		return fmt.Sprintf("count mismatch: %s listed %d time%s, reference %d", describeCourse(d.Course), d.FetchedCount, plural(d.FetchedCount), d.ValidCount)
	case models.DiffCodeMismatch:
		return fmt.Sprintf("code mismatch: %s, reference %s", describeCourse(d.Fetched), describeCourse(d.Valid))
	case models.DiffPrerequisiteMismatch:
		return fmt.Sprintf("prerequisite mismatch: %s requires %q, reference %q",
			models.Value(d.Fetched.Code), models.Value(d.Fetched.Prerequisite), models.Value(d.Valid.Prerequisite))
	}
	return string(d.Type)
}

func describeCourse(c *models.Course) string {
	if c == nil {
		return "?"
	}
	var parts []string
	if code := models.Value(c.Code); code != "" {
		parts = append(parts, code)
	}
	if title := models.Value(c.Title); title != "" {
		parts = append(parts, fmt.Sprintf("%q", title))
	}
	if credits := models.Value(c.Credits); credits != "" {
		parts = append(parts, "("+credits+")")
	}
	if len(parts) == 0 {
		return "?"
	}
	return strings.Join(parts, " ")
}

func times(n int) string {
	if n <= 1 {
		return ""
	}
	return fmt.Sprintf(" x%d", n)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Multi delivers over every notifier concurrently and joins the failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, n := range m {
		n := n
		g.Go(func() error {
			if err := n.Send(ctx, msg); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}
