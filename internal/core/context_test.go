package core

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/JonMunkholm/efile/internal/efile"
)

func TestClientContext(t *testing.T) {
	ctx := context.Background()
	if got := ClientIPFromContext(ctx); got != "" {
		t.Errorf("ClientIPFromContext(empty) = %q", got)
	}
	if attrs := clientAttrs(ctx); len(attrs) != 0 {
		t.Errorf("clientAttrs(empty) = %v", attrs)
	}

	ctx = ContextWithClientIP(ctx, "203.0.113.7")
	ctx = ContextWithUserAgent(ctx, "curl/8.0")
	if got := ClientIPFromContext(ctx); got != "203.0.113.7" {
		t.Errorf("ClientIPFromContext = %q", got)
	}
	if got := UserAgentFromContext(ctx); got != "curl/8.0" {
		t.Errorf("UserAgentFromContext = %q", got)
	}
}

func TestParseLogsClient(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := NewService(efile.DefaultFormatSpec(), nil, Options{Logger: logger})

	ctx := ContextWithClientIP(context.Background(), "203.0.113.7")
	if _, err := svc.Parse(ctx, "a.Qs", strings.NewReader(tariffDoc), -1); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "client_ip=203.0.113.7") {
		t.Errorf("log should carry the client address:\n%s", out)
	}
	if strings.Contains(out, "user_agent=") {
		t.Errorf("unset user agent should not be logged:\n%s", out)
	}
}
