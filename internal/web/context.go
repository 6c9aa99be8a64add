package web

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// documentID reads the {id} URL parameter.
func documentID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errBadID
	}
	return id, nil
}

// tableName reads the {name} URL parameter. chi routes on RawPath when the
// request has one, leaving the parameter escaped.
func tableName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if s, err := url.PathUnescape(name); err == nil {
			return s
		}
	}
	return name
}

// exportFormat reads ?format=, falling back to def.
func exportFormat(r *http.Request, def core.Format) (core.Format, error) {
	f := r.URL.Query().Get("format")
	if f == "" {
		return def, nil
	}
	return core.ParseFormat(f)
}

// withRequestMetadata adds the client address and User-Agent to ctx for
// parse logs.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // already rewritten by TrustedRealIP
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx = core.ContextWithClientIP(ctx, ip)
	return core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
}
