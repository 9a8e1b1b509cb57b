package quorumapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/multisig"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/sysaction"
)

const maxRequestSize = sysaction.MaxDataSize

// Server exposes a record store over HTTP. Requests are applied one at a
// time and committed individually.
type Server struct {
	cfg    Config
	secret []byte
	router *httprouter.Router
	log    log.Logger

	mu    sync.Mutex // guards store
	store *record.Store
}

// NewServer creates a server over store. Request submission is enabled only
// when cfg names a JWT secret file.
func NewServer(store *record.Store, cfg Config) (*Server, error) {
	s := &Server{
		cfg:   cfg,
		store: store,
		log:   log.New("module", "quorumapi"),
	}
	if cfg.JWTSecretFile != "" {
		secret, err := LoadJWTSecret(cfg.JWTSecretFile)
		if err != nil {
			return nil, err
		}
		s.secret = secret
	}
	r := httprouter.New()
	r.GET("/v1/groups/:group", s.getGroup)
	r.GET("/v1/groups/:group/members/:owner", s.getMember)
	r.GET("/v1/proposals/:proposal", s.getProposal)
	r.GET("/v1/balances/:address", s.getBalance)
	r.POST("/v1/requests", s.postRequest)
	s.router = r
	return s, nil
}

// Handler returns the HTTP handler, wrapped for CORS when origins are set.
func (s *Server) Handler() http.Handler {
	if len(s.cfg.CorsOrigins) == 0 {
		return s.router
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CorsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(s.router)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.RequestTimeout,
		WriteTimeout:      s.cfg.RequestTimeout,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("HTTP API started", "addr", s.cfg.Addr, "submit", s.secret != nil, "cors", s.cfg.CorsOrigins)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdown)
		<-errc
		s.log.Info("HTTP API stopped", "addr", s.cfg.Addr)
		return err
	}
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, ok := parseParam(w, ps, "group")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	registry := multisig.NewRegistry(s.store)
	g, err := registry.Group(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	next, err := multisig.NewTracker(registry).NextProposalAddress(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &GroupView{
		Address:         addr,
		Name:            g.Name,
		Threshold:       g.Threshold,
		MembershipCount: g.MembershipCount,
		MembershipEpoch: g.MembershipEpoch,
		Nonce:           g.Nonce,
		Authority:       delegate.Seed{Group: addr, Nonce: g.Nonce}.Authority(),
		Proposals:       g.ProposalSeq,
		NextProposal:    next,
	})
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	group, ok := parseParam(w, ps, "group")
	if !ok {
		return
	}
	owner, ok := parseParam(w, ps, "owner")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := multisig.NewRegistry(s.store).IsOwner(group, owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &MemberView{Group: group, Owner: owner, Member: member})
}

func (s *Server) getProposal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, ok := parseParam(w, ps, "proposal")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	registry := multisig.NewRegistry(s.store)
	p, err := multisig.NewTracker(registry).Proposal(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := registry.Group(p.Group)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProposalView(addr, p, g))
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, ok := parseParam(w, ps, "address")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.store.Balance(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &BalanceView{Address: addr, Balance: balance.ToBig().String()})
}

func (s *Server) postRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.secret == nil {
		writeJSON(w, http.StatusForbidden, &errorResponse{Error: ErrMissingSecret.Error()})
		return
	}
	from, err := authenticate(r, s.secret)
	if err != nil {
		s.log.Debug("Rejected request token", "remote", r.RemoteAddr, "err", err)
		writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: err.Error()})
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, &errorResponse{Error: err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sysaction.Execute(sysaction.Request{Sender: from, Payload: data}, s.store); err != nil {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: err.Error()})
		return
	}
	if err := s.store.Commit(); err != nil {
		s.log.Error("Failed to commit request", "from", from, "err", err)
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseParam(w http.ResponseWriter, ps httprouter.Params, name string) (common.Address, bool) {
	raw := ps.ByName(name)
	if !common.IsHexAddress(raw) {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "invalid " + name + " address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, multisig.ErrGroupNotFound) || errors.Is(err, multisig.ErrProposalNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, &errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
