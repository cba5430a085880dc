package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Accounts.
	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)

	// File exchange.
	mux.Handle("POST /v1/files/upload", s.requireAuth(s.handleUpload))
	mux.Handle("GET /v1/files/inbox", s.requireAuth(s.handleInbox))
	mux.Handle("GET /v1/files/download-encrypted/{token}", s.requireAuth(s.handleDownloadEncrypted))
	mux.HandleFunc("GET /v1/files/download/{token}", s.handleDownloadByToken)
	mux.Handle("POST /v1/files/decrypt", s.requireAuth(s.handleDecrypt))

	// Admin.
	mux.HandleFunc("POST /v1/admin/sweep", s.handleAdminSweep)

	return s.withRequestLogging(mux)
}
