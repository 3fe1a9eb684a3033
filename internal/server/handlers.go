package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/naveenspark/gatekeep/pkg/domain"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req, err := parseRegister(body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.internalError(w, r, "hash password", err)
		return
	}
	acct := &Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Profile:      req.Profile,
		CreatedAt:    s.now(),
	}
	switch err := s.store.CreateAccount(r.Context(), acct); {
	case errors.Is(err, ErrUserExists):
		writeMessage(w, http.StatusConflict, "Username already exists")
		return
	case err != nil:
		s.internalError(w, r, "create account", err)
		return
	}

	s.logger.Info("user registered", "username", acct.Username, "id", acct.ID)
	writeMessage(w, http.StatusCreated, "User registered")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := s.store.AccountByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.internalError(w, r, "look up account", err)
		return
	}
	if acct == nil || bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := newToken()
	if err != nil {
		s.internalError(w, r, "generate token", err)
		return
	}
	if err := s.store.IssueToken(r.Context(), token, acct.Username); err != nil {
		s.internalError(w, r, "issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.LoginResponse{Token: token, Message: "Login successful"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
		return
	}
	acct, err := s.store.AccountByToken(r.Context(), token)
	if errors.Is(err, ErrTokenUnknown) {
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if err != nil {
		s.internalError(w, r, "look up token", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.MeResponse{User: acct.Public()})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.ErrorContext(r.Context(), op, "path", r.URL.Path, "err", err)
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.MessageResponse{Message: msg})
}

func nowUTC() time.Time { return time.Now().UTC() }
