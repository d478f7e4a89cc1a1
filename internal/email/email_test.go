package email_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/email"
)

func TestBuild_TextOnly(t *testing.T) {
	raw := string(email.Build("noreply@doozi.app", email.Message{
		To: "owner@casaluna.pt", Subject: "Receipt", Text: "hello",
	}, "b1"))

	for _, want := range []string{
		"From: noreply@doozi.app\r\n",
		"To: owner@casaluna.pt\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"\r\n\r\nhello",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("missing %q in:\n%s", want, raw)
		}
	}
	if strings.Contains(raw, "multipart") {
		t.Error("text-only message should not be multipart")
	}
}

func TestBuild_Multipart(t *testing.T) {
	raw := string(email.Build("noreply@doozi.app", email.Message{
		To: "owner@casaluna.pt", Subject: "Réservation", Text: "plain", HTML: "<p>rich</p>",
	}, "b1"))

	if !strings.Contains(raw, `multipart/alternative; boundary="b1"`) {
		t.Fatalf("expected multipart header:\n%s", raw)
	}
	if strings.Count(raw, "--b1\r\n") != 2 || !strings.HasSuffix(raw, "--b1--\r\n") {
		t.Errorf("unexpected part framing:\n%s", raw)
	}
	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Errorf("non-ASCII subject should be Q-encoded:\n%s", raw)
	}
	if strings.Index(raw, "plain") > strings.Index(raw, "<p>rich</p>") {
		t.Error("text part should precede html part")
	}
}

func TestNoopSender(t *testing.T) {
	s := email.NewSender(email.SMTPConfig{}, zap.NewNop())
	if _, ok := s.(*email.NoopSender); !ok {
		t.Fatalf("expected NoopSender without SMTP host, got %T", s)
	}
	if err := s.Send(context.Background(), email.Message{To: "a@b.co", Subject: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Send(context.Background(), email.Message{}); !errors.Is(err, email.ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}

	if _, ok := email.NewSender(email.SMTPConfig{Host: "smtp.example.com"}, zap.NewNop()).(*email.SMTPSender); !ok {
		t.Fatal("expected SMTPSender when host is set")
	}
}

// fakeSMTP speaks just enough SMTP for one plain-text delivery and returns
// the DATA payload on the channel.
func fakeSMTP(t *testing.T) (string, int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
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
		tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.Fields(line + " x")[0]); cmd {
			case "EHLO", "HELO":
				tp.PrintfLine("250 fake")
			case "MAIL", "RCPT":
				tp.PrintfLine("250 OK")
			case "DATA":
				tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				got <- string(body)
				tp.PrintfLine("250 queued")
			case "QUIT":
				tp.PrintfLine("221 bye")
				return
			default:
				tp.PrintfLine("502 unsupported")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, got
}

func TestSMTPSender_Delivers(t *testing.T) {
	host, port, got := fakeSMTP(t)
	s := email.NewSMTPSender(email.SMTPConfig{Host: host, Port: port, From: "noreply@doozi.app"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Send(ctx, email.Message{To: "owner@casaluna.pt", Subject: "Receipt", Text: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case body := <-got:
		if !strings.Contains(body, "To: owner@casaluna.pt") || !strings.Contains(body, "hello") {
			t.Errorf("body = %q", body)
		}
	default:
		t.Fatal("server received no message")
	}
}

func TestSMTPSender_StalledServerHonorsContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		// Accept and never greet.
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	s := email.NewSMTPSender(email.SMTPConfig{Host: "127.0.0.1", Port: port, From: "noreply@doozi.app"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := s.Send(ctx, email.Message{To: "owner@casaluna.pt", Subject: "Receipt", Text: "hello"}); err == nil {
		t.Fatal("expected an error from a server that never greets")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send blocked for %s", elapsed)
	}
}
