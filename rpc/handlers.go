package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vegov/app"
	coreerrors "vegov/core/errors"
	"vegov/core/types"
	"vegov/native/delegation"
	"vegov/native/escrow"
)

const maxBodyBytes = 1 << 20

var errBadParam = coreerrors.Wrap(coreerrors.ErrValidation, "rpc: invalid parameter")

func uintParam(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, raw)
	}
	return v, nil
}

// heightQuery reads ?height=, defaulting to the latest version.
func heightQuery(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("height"))
	if raw == "" {
		return delegation.LatestHeight, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: height=%q", errBadParam, raw)
	}
	return v, nil
}

// atQuery reads ?at= as a unix time; ok is false when it is absent.
func atQuery(r *http.Request) (uint64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("at"))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: at=%q", errBadParam, raw)
	}
	return v, true, nil
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	global, err := s.backend.Global()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, global)
}

func (s *Server) handleHolderEntries(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	at, derive, err := atQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var out []*escrow.VoteTokenEntry
	if denom := strings.TrimSpace(r.URL.Query().Get("denom")); denom != "" {
		out, err = s.backend.HolderEntriesByDenom(owner, denom)
	} else {
		out, err = s.backend.HolderEntries(owner)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if derive {
		for _, entry := range out {
			entry.Status = entry.StatusAt(at)
		}
	}
	writeResult(w, out)
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := s.backend.Supply(chi.URLParam(r, "denom"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, supply)
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.backend.Proposal(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, p)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.backend.Vote(id, chi.URLParam(r, "voter"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, v)
}

// PairResponse combines a pair's tally and bribe pool.
type PairResponse struct {
	ProposalID uint64      `json:"proposalId"`
	Pair       uint64      `json:"pair"`
	Total      *big.Int    `json:"total"`
	Bribes     types.Coins `json:"bribes"`
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pair, err := uintParam(r, "pair")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	total, err := s.backend.PairTotal(id, pair)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pool, err := s.backend.BribePool(id, pair)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if pool == nil {
		pool = types.Coins{}
	}
	writeResult(w, PairResponse{ProposalID: id, Pair: pair, Total: total, Bribes: pool})
}

func (s *Server) handleCurrentProposal(w http.ResponseWriter, r *http.Request) {
	appID, err := uintParam(r, "app")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.backend.CurrentProposal(appID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, p)
}

func (s *Server) handleCompleted(w http.ResponseWriter, r *http.Request) {
	appID, err := uintParam(r, "app")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids, err := s.backend.CompletedProposals(appID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeResult(w, ids)
}

func (s *Server) handleEmission(w http.ResponseWriter, r *http.Request) {
	appID, err := uintParam(r, "app")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	em, err := s.backend.Emission(appID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, em)
}

// CursorResponse reports a claimant's claim cursor.
type CursorResponse struct {
	AppID    uint64 `json:"appId"`
	Claimant string `json:"claimant"`
	Cursor   uint64 `json:"cursor"`
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	appID, err := uintParam(r, "app")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	claimant := chi.URLParam(r, "claimant")
	cursor, err := s.backend.ClaimCursor(appID, claimant)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, CursorResponse{AppID: appID, Claimant: claimant, Cursor: cursor})
}

func (s *Server) handleDelegation(w http.ResponseWriter, r *http.Request) {
	height, err := heightQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.backend.DelegationAt(chi.URLParam(r, "delegator"), height)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, d)
}

// DelegateResponse reports a delegate's fees and, when a denom is given, the
// weight delegated to it.
type DelegateResponse struct {
	Info  *delegation.Info  `json:"info"`
	Stats *delegation.Stats `json:"stats,omitempty"`
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	height, err := heightQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	delegate := chi.URLParam(r, "delegate")
	info, err := s.backend.DelegateInfoAt(delegate, height)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := DelegateResponse{Info: info}
	if denom := strings.TrimSpace(r.URL.Query().Get("denom")); denom != "" {
		if out.Stats, err = s.backend.DelegateStatsAt(delegate, denom, height); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeResult(w, out)
}

// OperationRequest is the body of simulate and submit.
type OperationRequest struct {
	Type      string          `json:"type"`
	Env       app.Env         `json:"env"`
	Operation json.RawMessage `json:"operation"`
}

var errBadBody = coreerrors.Wrap(coreerrors.ErrValidation, "rpc: malformed request body")

func (s *Server) handleOperation(commit bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OperationRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", errBadBody, err))
			return
		}
		op, err := app.DecodeOperation(req.Type, req.Operation)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		run := s.backend.Simulate
		if commit {
			run = s.backend.Execute
		}
		res, err := run(r.Context(), req.Env, op)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeResult(w, res)
	}
}
