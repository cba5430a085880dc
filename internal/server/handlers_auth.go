package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"sealdrop/internal/api"
	"sealdrop/internal/store"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	user, err := s.authService.Register(r.Context(), req.Username, req.Email, req.Password, now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameTaken):
			s.writeErrorReq(w, r, http.StatusConflict, makeAPIError(http.StatusConflict, "conflict", ErrCodeUsernameTaken, err))
		case errors.Is(err, store.ErrEmailTaken):
			s.writeErrorReq(w, r, http.StatusConflict, makeAPIError(http.StatusConflict, "conflict", ErrCodeEmailTaken, err))
		case httpStatusFromError(err) == http.StatusBadRequest:
			s.writeErrorReq(w, r, http.StatusBadRequest, err)
		default:
			s.writeStoreError(w, r, err)
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, api.RegisterResponse{ID: user.ID, Username: user.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	limiterKey := loginAttemptKey(req.Username, r)
	if s.loginLimiter != nil && !s.loginLimiter.Allow(limiterKey, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests, apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many login attempts; retry later"),
		})
		return
	}

	user, err := s.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			if s.loginLimiter != nil {
				s.loginLimiter.RegisterFailure(limiterKey, now)
			}
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(errInvalidCredentials))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	if s.loginLimiter != nil {
		s.loginLimiter.Reset(limiterKey)
	}

	token, err := s.issueToken(user.ID, now)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}

	s.writeJSON(w, http.StatusOK, api.LoginResponse{Token: token})
}

func loginAttemptKey(username string, r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSpace(username)) + "|" + host
}
