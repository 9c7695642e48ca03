package email

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSMTPSender(t *testing.T) {
	s := NewSMTPSender("mail.local", 2525, "", "", "no-reply@library.local")
	if s.Addr != "mail.local:2525" {
		t.Errorf("Addr = %q, want mail.local:2525", s.Addr)
	}
	if s.auth != nil {
		t.Error("auth should be nil without credentials")
	}
	if withAuth := NewSMTPSender("mail.local", 587, "u", "p", "x@y.z"); withAuth.auth == nil {
		t.Error("auth should be set with credentials")
	}
}

// relay runs a minimal SMTP server on a loopback listener and reports the DATA payload of the
// first session.
func relay(t *testing.T) (*SMTPSender, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 relay.test ESMTP")
		var data string
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(line); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250 relay.test")
			case strings.HasPrefix(cmd, "MAIL FROM:"), strings.HasPrefix(cmd, "RCPT TO:"):
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 end with <CRLF>.<CRLF>")
				lines, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				data = strings.Join(lines, "\n")
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				got <- data
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()
	return senderFor(t, ln.Addr().String()), got
}

func senderFor(t *testing.T, addr string) *SMTPSender {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return NewSMTPSender(host, port, "", "", "no-reply@library.local")
}

func TestSMTPSender_Send(t *testing.T) {
	s, got := relay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Send(ctx, Message{To: "alice@example.com", Subject: "Library Service OTP", Body: "OTP: 123456"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case msg := <-got:
		for _, want := range []string{"From: no-reply@library.local", "To: alice@example.com", "Subject: Library Service OTP", "OTP: 123456"} {
			if !strings.Contains(msg, want) {
				t.Errorf("message missing %q:\n%s", want, msg)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not receive the message")
	}
}

func TestSMTPSender_StalledRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
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
	s := senderFor(t, ln.Addr().String())

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		assertReturnsSoon(t, func() error { return s.Send(ctx, Message{To: "x@y.z"}) })
	})
	t.Run("cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(200*time.Millisecond, cancel)
		assertReturnsSoon(t, func() error { return s.Send(ctx, Message{To: "x@y.z"}) })
	})
}

func assertReturnsSoon(t *testing.T, send func() error) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- send() }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Send to a silent relay should fail")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Send did not return after the context ended")
	}
}

func TestSMTPSender_Errors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	s := senderFor(t, addr)

	if err := s.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("empty recipient: got %v", err)
	}
	if err := s.Send(context.Background(), Message{To: "x@y.z"}); err == nil || !strings.Contains(err.Error(), "email: dial") {
		t.Errorf("refused connection: got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, Message{To: "x@y.z"}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: got %v", err)
	}
}

func TestLogSender_DoesNotLogBody(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := LogSender{Log: zap.New(core)}
	if err := s.Send(context.Background(), Message{To: "alice@example.com", Subject: "Library Service OTP", Body: "OTP: 654321"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("log entries = %d, want 1", logs.Len())
	}
	for _, f := range logs.All()[0].Context {
		if strings.Contains(f.String, "654321") {
			t.Error("code leaked into log")
		}
	}
}
