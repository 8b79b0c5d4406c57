package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/actiquest-dev/membria-core/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the inbound VCS/CI webhook HTTP endpoint (§4.3, §6). Routing
// uses go-chi (grounded on codeready-toolchain-tarsy and kadirpekel-hector,
// both of which route HTTP this way rather than with a bespoke mux); the
// server lifecycle (http.Server + BaseContext + graceful Shutdown on
// ctx.Done()) follows the teacher's internal/api.Server.Start idiom.
type Server struct {
	cfg        config.Webhook
	dispatcher *Dispatcher
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer constructs a webhook Server bound to cfg.
func NewServer(cfg config.Webhook, dispatcher *Dispatcher, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, dispatcher: dispatcher, logger: logger}
}

// Start begins listening on the configured bind address, blocking until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(s.cfg.Path, s.handleWebhook)

	s.httpServer = &http.Server{
		Addr:        s.cfg.Bind,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutCtx)
	}()

	s.logger.Info("webhook server starting", "bind", s.cfg.Bind, "path", s.cfg.Path)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleWebhook reads the raw body first (before any JSON decoding) so the
// bytes used for HMAC verification are exactly what was received, then
// dispatches by the X-GitHub-Event header (push, pull_request, workflow_run,
// check_run); any other or missing header value is decoded as the generic
// ci_event family and routed by the envelope's own event_type field.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Status: "error", Message: "failed to read body"})
		return
	}

	if s.cfg.Secret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		if !VerifySignature(s.cfg.Secret, body, sig) {
			writeJSON(w, http.StatusUnauthorized, Result{Status: "error", Message: "Invalid signature"})
			return
		}
	} else {
		s.logger.Warn("webhook secret not configured; accepting unsigned request")
	}

	now := time.Now().Unix()
	family := r.Header.Get("X-GitHub-Event")
	ctx := r.Context()

	var result Result
	switch family {
	case "push":
		var ev PushEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			result = errResult("push", err)
			break
		}
		ev.Timestamp = now
		result = s.dispatcher.DispatchPush(ctx, ev)

	case "pull_request":
		var ev PullRequestEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			result = errResult("pull_request", err)
			break
		}
		ev.Timestamp = now
		result = s.dispatcher.DispatchPullRequest(ctx, ev)

	case "workflow_run":
		var ev WorkflowRunEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			result = errResult("workflow_run", err)
			break
		}
		ev.Timestamp = now
		result = s.dispatcher.DispatchWorkflowRun(ctx, ev)

	case "check_run":
		var ev CheckRunEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			result = errResult("check_run", err)
			break
		}
		ev.Timestamp = now
		result = s.dispatcher.DispatchCheckRun(ctx, ev)

	default:
		var ev CIEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			result = errResult("ci_event", err)
			break
		}
		ev.Timestamp = now
		result = s.dispatcher.DispatchCIEvent(ctx, ev)
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
