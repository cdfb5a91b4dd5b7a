package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/ds124wfegd/afritix/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_BuildsMessage(t *testing.T) {
	s := NewSMTPSender(&config.EmailConfig{From: "noreply@afritix.com", Host: "smtp.local", Port: 2525})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.SendNotificationEmail(context.Background(), "ama@example.com", "Your tickets", "See you there")
	require.NoError(t, err)

	assert.Equal(t, "smtp.local:2525", gotAddr)
	assert.Equal(t, "noreply@afritix.com", gotFrom)
	assert.Equal(t, []string{"ama@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: noreply@afritix.com\r\n"))
	assert.Contains(t, string(gotMsg), "Subject: Your tickets\r\n")
	assert.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\nSee you there"))
}

func TestSMTPSender_RejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(&config.EmailConfig{Host: "smtp.local", Port: 25})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	err := s.SendNotificationEmail(context.Background(), "a@b.c\r\nBcc: x@y.z", "hi", "body")
	assert.Error(t, err)
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

type recordingMailer struct {
	err  error
	sent []Message
}

func (r *recordingMailer) SendNotificationEmail(_ context.Context, to, subject, body string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

func TestDeliver(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		sendErr      error
		wantAck      bool
		wantRequeue  bool
		wantSentSize int
	}{
		{"delivered", `{"to":"a@b.c","subject":"s","body":"b"}`, nil, true, false, 1},
		{"malformed dropped", `{not json`, nil, false, false, 0},
		{"send failure dropped", `{"to":"a@b.c","subject":"s","body":"b"}`, errors.New("relay down"), false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			m := &recordingMailer{err: tt.sendErr}

			deliver(context.Background(), []byte(tt.body), ack, m)

			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeued)
			assert.Len(t, m.sent, tt.wantSentSize)
		})
	}
}

func TestDeliver_FailedSendIsNotRetried(t *testing.T) {
	m := &countingMailer{err: errors.New("relay down")}
	ack := &fakeAck{}

	deliver(context.Background(), []byte(`{"to":"a@b.c","subject":"s","body":"b"}`), ack, m)

	assert.Equal(t, 1, m.attempts)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued, "a failed email must not go back on the queue")
	assert.False(t, ack.acked)
}

type countingMailer struct {
	err      error
	attempts int
}

func (c *countingMailer) SendNotificationEmail(context.Context, string, string, string) error {
	c.attempts++
	return c.err
}
