package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hookURL = "http://hooks.test/catalog"

func course(code, title, credits string) *models.Course {
	return &models.Course{
		Code:    models.String(code),
		Title:   models.String(title),
		Credits: models.String(credits),
	}
}

func sampleReport() *models.Report {
	return &models.Report{
		ComparedAt: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		Terms: []models.TermReport{
			{
				Name:      "Semester-2",
				ValidKey:  "Semester II",
				DiffCount: 3,
				Diffs: []models.DiffEntry{
					{Type: models.DiffCodeMismatch, Fetched: course("CS101", "Programming", "3"), Valid: course("CS110", "Programming Fundamentals", "3")},
					{Type: models.DiffMissing, Key: "MT102|3", Course: course("MT102", "Calculus II", "3"), Count: 2},
					{Type: models.DiffCountMismatch, Key: "EN101|3", Course: course("EN101", "English", "3"), FetchedCount: 2, ValidCount: 1},
				},
			},
			{Name: "Semester 1", ValidKey: "Semester 1"},
		},
	}
}

func TestRenderText(t *testing.T) {
	text := RenderText(sampleReport())

	assert.Contains(t, text, "3 differences across 2 terms.")
	assert.Contains(t, text, "code-mismatch: 1, missing: 1, count-mismatch: 1")
	assert.Contains(t, text, "Compared at 2026-03-02 10:30 UTC")
	assert.Contains(t, text, "Semester-2 [reference: Semester II]")
	assert.Contains(t, text, `code mismatch: CS101 "Programming" (3), reference CS110 "Programming Fundamentals" (3)`)
	assert.Contains(t, text, `missing: MT102 "Calculus II" (3) x2`)
	assert.Contains(t, text, "listed 2 times, reference 1")
	assert.Contains(t, text, "Semester 1\n  no differences")
}

func TestRenderTextNoDifferences(t *testing.T) {
	text := RenderText(&models.Report{})
	assert.Equal(t, "No differences found.\n", text)
}

func TestNewMessageSubject(t *testing.T) {
	msg := NewMessage("https://uni.test/cs", sampleReport())
	assert.Equal(t, "Course catalog: 3 differences found (https://uni.test/cs)", msg.Subject)

	msg = NewMessage("", &models.Report{})
	assert.Equal(t, "Course catalog matches reference", msg.Subject)
}

func TestWebhookNotifier(t *testing.T) {
	transport := httpmock.NewMockTransport()
	var payload webhookPayload
	transport.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Content-Type") != "application/json" {
			return httpmock.NewStringResponse(http.StatusUnsupportedMediaType, ""), nil
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
	})

	n := NewWebhookNotifier(hookURL, time.Second)
	n.Client.Transport = transport

	require.NoError(t, n.Send(context.Background(), NewMessage("src", sampleReport())))
	assert.Equal(t, 3, payload.TotalDiffs)
	assert.Equal(t, "src", payload.Source)
	require.NotNil(t, payload.Report)
	assert.Equal(t, "Semester II", payload.Report.Terms[0].ValidKey)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestWebhookNotifierFailure(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	n := NewWebhookNotifier(hookURL, time.Second)
	n.Client.Transport = transport

	err := n.Send(context.Background(), NewMessage("", sampleReport()))
	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	assert.Equal(t, "webhook", delivery.Channel)
	assert.Contains(t, err.Error(), "status 502: upstream down")
}

func TestSMTPNotifier(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	n := NewSMTPNotifier("mail.test", 2525, "bot", "secret", "bot@uni.test", []string{"a@uni.test", "b@uni.test"})
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	require.NoError(t, n.Send(context.Background(), NewMessage("", sampleReport())))
	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"a@uni.test", "b@uni.test"}, gotTo)
	assert.Contains(t, gotMsg, "To: a@uni.test, b@uni.test\r\n")
	assert.Contains(t, gotMsg, "Subject: Course catalog: 3 differences found\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\n3 differences across 2 terms.\r\n")
}

func TestSMTPNotifierWrapsFailure(t *testing.T) {
	n := NewSMTPNotifier("mail.test", 25, "", "", "bot@uni.test", []string{"a@uni.test"})
	refused := errors.New("connection refused")
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return refused }

	err := n.Send(context.Background(), NewMessage("", &models.Report{}))
	assert.ErrorIs(t, err, refused)
	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	assert.Equal(t, "smtp", delivery.Channel)
}

type stubNotifier struct {
	err  error
	sent chan Message
}

func (s *stubNotifier) Send(_ context.Context, msg Message) error {
	s.sent <- msg
	return s.err
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &stubNotifier{err: &DeliveryError{Channel: "webhook", Err: io.ErrUnexpectedEOF}, sent: make(chan Message, 1)}
	healthy := &stubNotifier{sent: make(chan Message, 1)}

	err := Multi{failing, healthy}.Send(context.Background(), NewMessage("", sampleReport()))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Len(t, failing.sent, 1)
	assert.Len(t, healthy.sent, 1)
	assert.True(t, strings.HasPrefix(err.Error(), "deliver report via webhook"))
}
