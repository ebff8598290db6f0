// Package api serves the pedal's patches and settings over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mastercactapus/metropedal/pedal"
	"github.com/mastercactapus/metropedal/store"
	"github.com/mastercactapus/metropedal/tempo"
)

// Pedal is the controller as seen from request handlers.
type Pedal interface {
	Status(ctx context.Context) (pedal.Status, error)
	Patches(ctx context.Context) ([]store.Patch, error)
	AddPatch(ctx context.Context, p store.Patch) (int, error)
	UpdatePatch(ctx context.Context, i int, p store.Patch) error
	DeletePatch(ctx context.Context, i int) error
	Settings(ctx context.Context) (store.Settings, error)
	UpdateSettings(ctx context.Context, st store.Settings) error
}

// Server is the HTTP front end. Online is true while it is listening.
type Server struct {
	p       Pedal
	webRoot string
	mux     *http.ServeMux
	online  atomic.Bool
}

// New builds the handler set. Static files are served from webRoot when it
// is not empty.
func New(p Pedal, webRoot string) *Server {
	s := &Server{p: p, webRoot: webRoot, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/patches", s.listPatches)
	s.mux.HandleFunc("POST /api/patches", s.createPatch)
	s.mux.HandleFunc("PUT /api/patches", s.updatePatch)
	s.mux.HandleFunc("DELETE /api/patches", s.deletePatch)
	s.mux.HandleFunc("GET /api/settings", s.getSettings)
	s.mux.HandleFunc("POST /api/settings", s.postSettings)
	s.mux.HandleFunc("GET /api/state", s.getState)
	if webRoot != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(webRoot)))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.WithFields(log.Fields{
		"Method": req.Method,
		"Path":   req.URL.Path,
	}).Debugln("http request")
	s.mux.ServeHTTP(w, req)
}

// Online reports whether the server is accepting connections.
func (s *Server) Online() bool { return s.online.Load() }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.online.Store(true)
	defer s.online.Store(false)
	log.WithField("Addr", l.Addr().String()).Infoln("web server started")

	err = srv.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, "serve")
}

type statusMsg struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugln("write response:", err)
	}
}

func success(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, statusMsg{Status: "success"})
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, statusMsg{Error: msg})
}

// writeErr maps validation errors to 400 and anything else to 500.
func writeErr(w http.ResponseWriter, err error) {
	switch errors.Cause(err) {
	case store.ErrBankFull, store.ErrInvalidIndex, store.ErrInvalidPatch, store.ErrLastPatch:
		fail(w, http.StatusBadRequest, err.Error())
	case context.Canceled, context.DeadlineExceeded:
		fail(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Errorln("api:", err)
		fail(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, req *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1024))
	return dec.Decode(v)
}

func (s *Server) listPatches(w http.ResponseWriter, req *http.Request) {
	patches, err := s.p.Patches(req.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patches)
}

func (s *Server) createPatch(w http.ResponseWriter, req *http.Request) {
	p := store.Patch{Tempo: tempo.DefaultBPM}
	if err := decode(w, req, &p); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if _, err := s.p.AddPatch(req.Context(), p); err != nil {
		writeErr(w, err)
		return
	}
	success(w)
}

type indexedPatch struct {
	Index *int        `json:"index"`
	Patch store.Patch `json:"patch"`
}

func (s *Server) updatePatch(w http.ResponseWriter, req *http.Request) {
	body := indexedPatch{Patch: store.Patch{Tempo: tempo.DefaultBPM}}
	if err := decode(w, req, &body); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if body.Index == nil {
		fail(w, http.StatusBadRequest, store.ErrInvalidIndex.Error())
		return
	}
	if err := s.p.UpdatePatch(req.Context(), *body.Index, body.Patch); err != nil {
		writeErr(w, err)
		return
	}
	success(w)
}

func (s *Server) deletePatch(w http.ResponseWriter, req *http.Request) {
	var body indexedPatch
	if err := decode(w, req, &body); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if body.Index == nil {
		fail(w, http.StatusBadRequest, store.ErrInvalidIndex.Error())
		return
	}
	if err := s.p.DeletePatch(req.Context(), *body.Index); err != nil {
		writeErr(w, err)
		return
	}
	success(w)
}

func (s *Server) getSettings(w http.ResponseWriter, req *http.Request) {
	st, err := s.p.Settings(req.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// postSettings applies the fields present in the body over the current
// settings.
func (s *Server) postSettings(w http.ResponseWriter, req *http.Request) {
	st, err := s.p.Settings(req.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := decode(w, req, &st); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := s.p.UpdateSettings(req.Context(), st); err != nil {
		writeErr(w, err)
		return
	}
	success(w)
}

func (s *Server) getState(w http.ResponseWriter, req *http.Request) {
	st, err := s.p.Status(req.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
