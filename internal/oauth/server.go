package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CallbackServer is the loopback HTTP server standing in for the redirect
// URI. It captures the provider's redirect parameters and hands them to the
// waiting login flow.
type CallbackServer struct {
	server     *http.Server
	listener   net.Listener
	port       int
	resultChan chan *CallbackResult
	errorChan  chan error
	mu         sync.Mutex
	running    bool
}

// CallbackResult contains the parameters extracted from the provider redirect.
type CallbackResult struct {
	// Code is the authorization code received from the provider.
	Code string
	// State is the anti-CSRF state echoed back by the provider.
	State string
	// Error contains the provider error code if the authorization failed.
	Error string
	// ErrorDescription carries the provider's human-readable error detail.
	ErrorDescription string
}

// NewCallbackServer creates a callback server listening on the given port.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{
		port:       port,
		resultChan: make(chan *CallbackResult, 1),
		errorChan:  make(chan error, 1),
	}
}

// Start begins listening for the provider redirect.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return NewAuthenticationError(ErrServerStartFailed, fmt.Errorf("server is already running"))
	}

	// Loopback only: a LAN peer must not be able to deliver the redirect.
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", s.port))
	if err != nil {
		return NewAuthenticationError(ErrPortInUse, fmt.Errorf("port %d is already in use: %w", s.port, err))
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	mux.HandleFunc("/success", s.handleSuccess)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.running = true

	srv := s.server
	go func() {
		if errServe := srv.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			s.errorChan <- fmt.Errorf("callback server failed: %w", errServe)
		}
	}()

	return nil
}

// Stop gracefully stops the callback server.
func (s *CallbackServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	log.Debug("stopping OAuth callback server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false
	s.server = nil
	s.listener = nil
	return err
}

// WaitForCallback blocks until a callback result, server error, or timeout
// occurs. A timeout maps to ErrCallbackTimeout so the flow ends in a definite
// failed state instead of hanging.
func (s *CallbackServer) WaitForCallback(timeout time.Duration) (*CallbackResult, error) {
	select {
	case result := <-s.resultChan:
		return result, nil
	case err := <-s.errorChan:
		return nil, err
	case <-time.After(timeout):
		return nil, NewAuthenticationError(ErrCallbackTimeout, fmt.Errorf("no callback received within %s", timeout))
	}
}

// IsRunning returns whether the server is currently accepting the redirect.
func (s *CallbackServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// handleCallback receives the provider redirect. Validation of state against
// the stored value belongs to the flow, not to this transport layer; the
// handler only reports what arrived.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	log.Debug("received OAuth callback")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	result := &CallbackResult{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	if result.Error != "" {
		log.Errorf("provider returned OAuth error: %s", result.Error)
		s.sendResult(result)
		s.writeFailurePage(w, result.Error)
		return
	}
	if result.Code == "" || result.State == "" {
		log.Error("callback missing code or state parameter")
		s.sendResult(result)
		s.writeFailurePage(w, "missing callback parameters")
		return
	}

	s.sendResult(result)
	http.Redirect(w, r, "/success", http.StatusFound)
}

// handleSuccess serves the post-login page shown in the user's browser.
func (s *CallbackServer) handleSuccess(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(loginSuccessHTML)); err != nil {
		log.Errorf("failed to write success page: %v", err)
	}
}

func (s *CallbackServer) writeFailurePage(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	if _, err := fmt.Fprintf(w, loginFailureHTML, reason); err != nil {
		log.Errorf("failed to write failure page: %v", err)
	}
}

// sendResult delivers the callback result without blocking the handler.
// The channel is buffered for exactly one result; later redirects for the
// same attempt are dropped.
func (s *CallbackServer) sendResult(result *CallbackResult) {
	select {
	case s.resultChan <- result:
	default:
		log.Warn("duplicate OAuth callback dropped")
	}
}
