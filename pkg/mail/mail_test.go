package mail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Slimpush/api-yamdb-final-master/pkg/logger"
	"github.com/Slimpush/api-yamdb-final-master/pkg/queue"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	sent     []Message
}

func (f *flakySender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("relay unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

var testMessage = Message{
	Subject: "YaMDb registration",
	Body:    "Your confirmation code: abc",
	From:    "admin@yamdb.local",
	To:      []string{"alice@x.com"},
}

type smtpSession struct {
	commands []string
	data     string
}

// startRelay runs a minimal SMTP server that accepts every message and
// reports each session on the returned channel.
func startRelay(t *testing.T) (host, port string, sessions <-chan smtpSession) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan smtpSession, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSMTP(conn, out)
		}
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port, out
}

func serveSMTP(conn net.Conn, out chan<- smtpSession) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) {
		fmt.Fprintf(conn, "%s\r\n", line)
	}

	var session smtpSession
	reply("220 relay.local ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		session.commands = append(session.commands, cmd)
		upper := strings.ToUpper(cmd)
		switch {
		case strings.HasPrefix(upper, "EHLO"):
			reply("250-relay.local")
			reply("250 8BITMIME")
		case upper == "DATA":
			reply("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			session.data = b.String()
			reply("250 queued")
		case upper == "QUIT":
			reply("221 bye")
			out <- session
			return
		default:
			reply("250 OK")
		}
	}
}

func TestSMTPSenderDeliversThroughRelay(t *testing.T) {
	host, port, sessions := startRelay(t)
	s := NewSMTPSender(host, port, "", "")

	require.NoError(t, s.Send(context.Background(), testMessage))

	select {
	case session := <-sessions:
		assert.Contains(t, session.commands, "RCPT TO:<alice@x.com>")
		assert.True(t, strings.HasPrefix(session.commands[1], "MAIL FROM:<admin@yamdb.local>"), session.commands)
		assert.Contains(t, session.data, "Subject: YaMDb registration\r\n")
		assert.True(t, strings.HasSuffix(session.data, "Your confirmation code: abc\r\n"))
	case <-time.After(5 * time.Second):
		t.Fatal("relay saw no session")
	}
}

// startSilentRelay accepts connections but never greets, like a blackholed
// relay.
func startSilentRelay(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestSMTPSenderHonoursContextDeadline(t *testing.T) {
	host, port := startSilentRelay(t)
	s := NewSMTPSender(host, port, "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Send(ctx, testMessage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSenderAppliesDefaultTimeout(t *testing.T) {
	host, port := startSilentRelay(t)
	s := NewSMTPSender(host, port, "", "")
	s.timeout = 50 * time.Millisecond

	err := s.Send(context.Background(), testMessage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSMTPSenderRequiresRecipients(t *testing.T) {
	s := NewSMTPSender("mail.local", "25", "", "")
	err := s.Send(context.Background(), Message{Subject: "x"})
	assert.Error(t, err)
}

func TestResilientSenderDeliversDirectly(t *testing.T) {
	next := &flakySender{}
	s := NewResilientSender(next, ResilientConfig{MaxRetries: 3}, logger.Discard())

	require.NoError(t, s.Send(context.Background(), testMessage))
	assert.Len(t, next.sent, 1)
	assert.Equal(t, 0, s.Pending())
}

func TestResilientSenderQueuesAndRetries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := &flakySender{failures: 1}
	s := NewResilientSender(next, ResilientConfig{MaxRetries: 3, RetryInterval: time.Second}, logger.Discard())
	s.now = func() time.Time { return now }
	s.pending = queue.NewWithClock[Message](func() time.Time { return now })

	err := s.Send(context.Background(), testMessage)
	assert.ErrorIs(t, err, ErrQueued)
	assert.Equal(t, 1, s.Pending())

	s.Flush(context.Background())
	assert.Equal(t, 1, s.Pending(), "not due yet")

	now = now.Add(time.Second)
	s.Flush(context.Background())
	assert.Equal(t, 0, s.Pending())
	assert.Len(t, next.sent, 1)
}

func TestResilientSenderDropsExhaustedMessages(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := &flakySender{failures: 100}
	s := NewResilientSender(next, ResilientConfig{MaxRetries: 2, RetryInterval: time.Second, MaxFailures: 100}, logger.Discard())
	s.now = func() time.Time { return now }
	s.pending = queue.NewWithClock[Message](func() time.Time { return now })

	_ = s.Send(context.Background(), testMessage)
	for i := 0; i < 5; i++ {
		now = now.Add(time.Hour)
		s.Flush(context.Background())
	}
	assert.Equal(t, 0, s.Pending())
	assert.Empty(t, next.sent)
}

func TestResilientSenderWithoutRetries(t *testing.T) {
	next := &flakySender{failures: 1}
	s := NewResilientSender(next, ResilientConfig{MaxRetries: 0}, logger.Discard())

	err := s.Send(context.Background(), testMessage)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrQueued)
	assert.Equal(t, 0, s.Pending())
}

func TestLogSenderNeverFails(t *testing.T) {
	assert.NoError(t, NewLogSender(logger.Discard()).Send(context.Background(), testMessage))
}
