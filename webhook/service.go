package webhook

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/qguild-go/qguild/events"
	"github.com/qguild-go/qguild/signature"
)

// Defaults for the receiver.
const (
	DefaultMaxBodySize = 1 << 20
	DefaultSinkSize    = 4096

	shutdownGrace = 5 * time.Second
)

// Config describes a webhook Service.
type Config struct {
	// Secret is the bot secret the platform signs deliveries with.
	Secret string
	// Addr is the listen address, e.g. ":8443".
	Addr string
	// MaxBodySize caps request bodies; larger deliveries get 413.
	MaxBodySize int64
	// SinkSize bounds the handler-to-consumer event channel.
	SinkSize int
	Logger   zerolog.Logger
}

// Service receives signed platform callbacks on ANY / and forwards decoded
// dispatches to its event sink. Backpressure blocks the handler rather than
// dropping events.
type Service struct {
	secret      string
	maxBodySize int64
	log         zerolog.Logger

	sink   chan events.Event
	server *http.Server
	closed atomic.Bool
}

// NewService builds the receiver. Zero sizes take the defaults.
func NewService(cfg Config) *Service {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.SinkSize <= 0 {
		cfg.SinkSize = DefaultSinkSize
	}
	s := &Service{
		secret:      cfg.Secret,
		maxBodySize: cfg.MaxBodySize,
		log:         cfg.Logger,
		sink:        make(chan events.Event, cfg.SinkSize),
	}

	r := chi.NewRouter()
	r.Use(s.verifySignature)
	r.Handle("/", http.HandlerFunc(s.handle))
	s.server = &http.Server{Addr: cfg.Addr, Handler: r}
	return s
}

// Events is the dispatch sink. It is closed when Run returns.
func (s *Service) Events() <-chan events.Event { return s.sink }

// Handler exposes the routed handler for embedding in another server.
func (s *Service) Handler() http.Handler { return s.server.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully and closes
// the sink.
func (s *Service) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("webhook listening")
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.closed.Store(true)
		close(s.sink)
		return err
	case <-ctx.Done():
	}

	s.closed.Store(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	<-errc
	close(s.sink)
	if err != nil {
		return err
	}
	return nil
}

// verifySignature authenticates a delivery before the handler sees it:
// missing headers 401, malformed signature 400, oversized body 413, failed
// verification 401.
func (s *Service) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sigHex := r.Header.Get(HeaderSignature)
		ts := r.Header.Get(HeaderTimestamp)
		if sigHex == "" || ts == "" {
			s.log.Debug().Msg("webhook delivery missing signature headers")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		sig, err := hex.DecodeString(sigHex)
		if err != nil || len(sig) != signature.SignatureLength {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
			} else {
				w.WriteHeader(http.StatusBadRequest)
			}
			return
		}

		msg := append([]byte(ts), body...)
		if !signature.Verify(s.secret, msg, sig) {
			s.log.Debug().Msg("webhook delivery failed verification")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Service) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch env.Op {
	case OpHTTPCallbackValidation:
		s.handleValidation(w, env)
	case OpDispatch:
		s.handleDispatch(w, r, env)
	default:
		s.log.Debug().Int("op", env.Op).Msg("rejecting unsupported webhook opcode")
		w.WriteHeader(http.StatusUnsupportedMediaType)
	}
}

func (s *Service) handleValidation(w http.ResponseWriter, env envelope) {
	var req validationRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	sig := signature.SignHex(s.secret, []byte(req.EventTS+req.PlainToken))
	s.log.Info().Msg("answered webhook validation challenge")
	writeJSON(w, validationResponse{PlainToken: req.PlainToken, Signature: sig})
}

func (s *Service) handleDispatch(w http.ResponseWriter, r *http.Request, env envelope) {
	ev, err := events.Decode(env.Tag, env.Data)
	if err != nil {
		s.log.Warn().Err(err).Str("tag", env.Tag).Msg("undecodable webhook dispatch")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if ev.IsUnknown() {
		s.log.Debug().Str("tag", env.Tag).Msg("unknown webhook dispatch tag")
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}

	if s.closed.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	select {
	case s.sink <- ev:
	case <-r.Context().Done():
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, ack{ID: env.ID, Op: OpHTTPCallbackAck})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	raw, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(raw)
}
