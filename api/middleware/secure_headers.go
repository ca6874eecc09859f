package middleware

import (
	"net/http"

	"github.com/unrolled/secure"

	"github.com/angelmondragon/footfall-dashboard/pkg/config"
)

// SecureHeaders sets the browser hardening headers. TLS redirects only apply in prod.
func SecureHeaders(cfg config.AppConfig) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.IsProd(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.IsProd(),
	})
	return s.Handler
}
