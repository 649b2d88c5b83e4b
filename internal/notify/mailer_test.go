package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSMTPMailerWithoutCredentialsIsNoop(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, User: "someone"}, zap.New(core))

	assert.False(t, m.Configured())
	require.NoError(t, m.Send(context.Background(), "jane@example.com", "Accepted", "Dear Jane"))

	entries := logs.FilterMessage("[Mailer] SMTP not configured, message not sent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "jane@example.com", entries[0].ContextMap()["to"])
}

func TestSMTPMailerBuildMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{
		User:      "u",
		Password:  "p",
		FromEmail: "noreply@cvprocessor.com",
		FromName:  "CV Processor",
	}, nil)
	require.True(t, m.Configured())

	msg, err := m.buildMessage("jane@example.com", "Accepted", "Dear Jane,\n\nCongratulations!")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "Subject: Accepted")
	assert.Contains(t, raw, "<jane@example.com>")
	assert.Contains(t, raw, `"CV Processor" <noreply@cvprocessor.com>`)
	assert.Contains(t, raw, "Congratulations!")
}

func TestSMTPMailerRejectsBadRecipient(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{User: "u", Password: "p", FromEmail: "noreply@cvprocessor.com"}, nil)

	_, err := m.buildMessage("not an address", "Accepted", "body")
	assert.Error(t, err)
}
