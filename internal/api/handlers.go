package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/partydle/internal/rules"
	"github.com/MJE43/partydle/internal/service"
)

const defaultEntriesLimit = 20

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GamesResponse{
		Games:         s.svc.Games(),
		EngineVersion: EngineVersion,
	})
}

// handlePool reports the eligible pool for the stored settings, with any
// rule keys in the query string applied on top.
func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	gameID, verr := parseGameID("game", chi.URLParam(r, "game"))
	if verr != nil {
		s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
		return
	}

	cfg, err := rules.FromPairs(s.svc.Settings(r.Context()), ruleOverrides(r.URL.Query()))
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"game": gameID})
		return
	}
	cfg.GameID = gameID

	report, err := s.svc.Pool(cfg)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"game": gameID})
		return
	}
	s.writeJSON(w, http.StatusOK, PoolResponse{Pool: report, EngineVersion: EngineVersion})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	gameID, verr := parseGameID("game", chi.URLParam(r, "game"))
	if verr != nil {
		s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
		return
	}
	limit, verr := parseIntParam(r.URL.Query(), "limit", defaultEntriesLimit, 0)
	if verr != nil {
		s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	entries, err := s.svc.SearchEntries(gameID, q, limit)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"game": gameID})
		return
	}
	s.writeJSON(w, http.StatusOK, EntriesResponse{Entries: entries, Query: q, EngineVersion: EngineVersion})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateGenerateRequest(&req); verr != nil {
		s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
		return
	}

	view, err := s.svc.Generate(r.Context(), service.GenerateRequest{
		Rules:      req.Rules,
		ClientSeed: req.ClientSeed,
		Nonce:      req.Nonce,
		Force:      req.Force,
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"client_seed": req.ClientSeed})
		return
	}

	s.securityLogger.LogPartyOperation(middleware.GetReqID(r.Context()), "generate", view.ID, view.GameID, view.ServerSeedHash, view.ClientSeed)
	s.writeJSON(w, http.StatusCreated, PartyResponse{Party: view, EngineVersion: EngineVersion})
}

func (s *Server) handleListParties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gameID := -1
	if raw := q.Get("game"); raw != "" {
		id, verr := parseGameID("game", raw)
		if verr != nil {
			s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
			return
		}
		gameID = id
	}
	page, verr := parseIntParam(q, "page", 1, 0)
	if verr != nil {
		s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
		return
	}
	perPage, verr := parseIntParam(q, "per_page", 50, maxPerPage)
	if verr != nil {
		s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
		return
	}

	parties, total, err := s.svc.History(r.Context(), gameID, page, perPage)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, PartiesResponse{
		Parties:       parties,
		TotalCount:    total,
		Page:          page,
		PerPage:       perPage,
		EngineVersion: EngineVersion,
	})
}

// handleLatestParty returns the newest party for ?game=, defaulting to the
// game in the stored settings.
func (s *Server) handleLatestParty(w http.ResponseWriter, r *http.Request) {
	gameID := s.svc.Settings(r.Context()).GameID
	if raw := r.URL.Query().Get("game"); raw != "" {
		id, verr := parseGameID("game", raw)
		if verr != nil {
			s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
			return
		}
		gameID = id
	}

	view, err := s.svc.LatestParty(r.Context(), gameID)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"game": gameID})
		return
	}
	s.writeJSON(w, http.StatusOK, PartyResponse{Party: view, EngineVersion: EngineVersion})
}

func (s *Server) handleGetParty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := s.svc.Party(r.Context(), id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"party_id": id})
		return
	}
	s.writeJSON(w, http.StatusOK, PartyResponse{Party: view, EngineVersion: EngineVersion})
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req GuessRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateGuessRequest(&req); verr != nil {
		s.errorHandler.HandleValidationError(w, r, verr.Field, verr.Message)
		return
	}

	result, err := s.svc.Guess(r.Context(), id, req.Guess)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"party_id": id})
		return
	}
	s.writeJSON(w, http.StatusOK, GuessResponse{Result: result, EngineVersion: EngineVersion})
}

func (s *Server) handleListGuesses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	guesses, err := s.svc.Guesses(r.Context(), id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"party_id": id})
		return
	}
	s.writeJSON(w, http.StatusOK, GuessesResponse{PartyID: id, Guesses: guesses, EngineVersion: EngineVersion})
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := s.svc.Reveal(r.Context(), id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"party_id": id})
		return
	}

	s.securityLogger.LogPartyOperation(middleware.GetReqID(r.Context()), "reveal", view.ID, view.GameID, view.ServerSeedHash, view.ClientSeed)
	s.writeJSON(w, http.StatusOK, PartyResponse{Party: view, EngineVersion: EngineVersion})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := s.svc.Verify(r.Context(), id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"party_id": id})
		return
	}

	s.securityLogger.LogAuditEvent(middleware.GetReqID(r.Context()), "verify", "party:"+id, outcome(v.Match), nil)
	s.writeJSON(w, http.StatusOK, VerifyResponse{Verification: v, EngineVersion: EngineVersion})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, SettingsResponse{Rules: s.svc.Settings(r.Context()), EngineVersion: EngineVersion})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg rules.Config
	if !s.decodeJSON(w, r, &cfg) {
		return
	}
	if err := s.svc.SaveSettings(r.Context(), cfg); err != nil {
		s.errorHandler.HandleError(w, r, err, nil)
		return
	}

	s.securityLogger.LogAuditEvent(middleware.GetReqID(r.Context()), "settings_update", "settings", "success", map[string]interface{}{
		"game":       cfg.GameID,
		"party_size": cfg.PartySize,
	})
	s.writeJSON(w, http.StatusOK, SettingsResponse{Rules: cfg, EngineVersion: EngineVersion})
}

func outcome(ok bool) string {
	if ok {
		return "match"
	}
	return "mismatch"
}
