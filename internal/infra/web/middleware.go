package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/usecase"
)

type Middleware func(http.Handler) http.Handler

func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := r.Header.Get("X-Request-Id")
			if tid == "" {
				tid = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", tid)
			ctx := logging.WithTraceID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(ww, r)
			// ww.ctx carries the session id added further down the chain
			l := logging.With(ww.ctxOr(r.Context()), logger)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
	ctx    context.Context
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) ctxOr(def context.Context) context.Context {
	if w.ctx != nil {
		return w.ctx
	}
	return def
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type sessionKey struct{}

// Session loads the browser's session (creating one on first visit) and
// re-mints the cookie when the id changed. When the store is unavailable the
// request runs on a throwaway anonymous session so guests still reach the
// portal.
func Session(auth *AuthManager, sessions usecase.SessionUseCase, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := auth.SessionID(r)
			sess, err := sessions.Load(r.Context(), id)
			switch {
			case err != nil:
				logging.With(r.Context(), logger).Warn().Err(err).Msg("session load failed, using an ephemeral session")
				sess = model.NewSession(uuid.NewString())
			case sess.ID != id:
				if err := sessions.Save(r.Context(), sess); err != nil {
					logging.With(r.Context(), logger).Warn().Err(err).Msg("session save failed, using an ephemeral session")
					break
				}
				if _, err := auth.Mint(w, sess.ID); err != nil {
					logging.With(r.Context(), logger).Error().Err(err).Msg("session cookie not minted")
				}
			}
			ctx := logging.WithSessID(r.Context(), sess.ID)
			if sess.Portal.MAC != "" {
				ctx = logging.WithMAC(ctx, sess.Portal.MAC)
			}
			ctx = context.WithValue(ctx, sessionKey{}, sess)
			if rw, ok := w.(*respWriter); ok {
				rw.ctx = ctx
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFrom returns the request's session. Handlers are only mounted
// behind Session, so it is never nil there.
func sessionFrom(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey{}).(*model.Session)
	return sess
}
