package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/angelmondragon/disputedesk-backend/api/middleware"
	"github.com/angelmondragon/disputedesk-backend/internal/disputes"
)

func requestMeta(r *http.Request) disputes.RequestMeta {
	return disputes.RequestMeta{
		AuthToken: middleware.AuthTokenFromContext(r.Context()),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
