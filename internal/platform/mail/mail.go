// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package mail delivers transactional email for the identity flows.

Email is a collaborator: nothing in the API waits on it. Services call
[Dispatch], which sends in the background under its own timeout and only logs
failures.

# Senders

  - [SMTPSender]: mailyak over an authenticated SMTP relay.
  - [NoopSender]: used when SMTP is not configured outside production.
  - [Recorder]: keeps messages in memory for tests.
*/
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"sync"

	"github.com/domodwyer/mailyak/v3"
)

// Message is one outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a [Message].
type Sender interface {
	Send(context context.Context, message Message) error
}

// # SMTP

// SMTPSender sends mail through an SMTP relay with PLAIN auth (STARTTLS on 587).
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

// NewSMTPSender creates an SMTP sender. from defaults to the username.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: "JadeWellness",
	}
}

// Send implements [Sender]. mailyak has no context support, so the send runs in
// a goroutine and the caller stops waiting when ctx is done.
func (sender *SMTPSender) Send(context context.Context, message Message) error {
	client := mailyak.New(sender.host+":"+strconv.Itoa(sender.port),
		smtp.PlainAuth("", sender.username, sender.password, sender.host))

	client.To(message.To)
	client.From(sender.from)
	client.FromName(sender.fromName)
	client.Subject(message.Subject)
	client.HTML().Set(message.HTML)

	done := make(chan error, 1)
	go func() {
		done <- client.Send()
	}()

	select {
	case <-context.Done():
		return context.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp_send_failed: %w", err)
		}
		return nil
	}
}

// # Development & Tests

// NoopSender discards every message.
type NoopSender struct{}

// Send implements [Sender].
func (NoopSender) Send(context.Context, Message) error { return nil }

// Recorder stores sent messages. An optional Err is returned from every Send.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Send implements [Sender].
func (recorder *Recorder) Send(_ context.Context, message Message) error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	if recorder.Err != nil {
		return recorder.Err
	}
	recorder.messages = append(recorder.messages, message)
	return nil
}

// Messages returns a copy of everything sent so far.
func (recorder *Recorder) Messages() []Message {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return append([]Message(nil), recorder.messages...)
}
