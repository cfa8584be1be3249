package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-assistant/internal/assistant"
	"github.com/DoyleJ11/lol-draft-assistant/internal/delta"
	"github.com/DoyleJ11/lol-draft-assistant/internal/engine"
	"github.com/DoyleJ11/lol-draft-assistant/internal/lobby"
	"github.com/DoyleJ11/lol-draft-assistant/internal/types"
	pub "github.com/DoyleJ11/lol-draft-assistant/pkg/types"
)

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, assistant.ErrDraftNotFound), errors.Is(err, lobby.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, engine.ErrEmptyChampion),
		errors.Is(err, engine.ErrInvalidSide),
		errors.Is(err, delta.ErrInvalidPerspective):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrOutOfPhase),
		errors.Is(err, engine.ErrAlreadyUsed),
		errors.Is(err, engine.ErrWrongTurn),
		errors.Is(err, engine.ErrNothingToUndo),
		errors.Is(err, lobby.ErrNoChampionAvailable),
		errors.Is(err, assistant.ErrStaleRanking):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, types.ErrorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func snapshot(code string, snap lobby.Snapshot) pub.StateSnapshot {
	return pub.NewStateSnapshot(code, snap.Version, snap.State)
}

func warnings(err error) []string {
	var out []string
	for _, e := range multierr.Errors(err) {
		out = append(out, e.Error())
	}
	return out
}

func CreateDraft(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, snap, err := svc.CreateDraft(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		w.Header().Set("Location", "/drafts/"+code)
		writeJSON(w, http.StatusCreated, snapshot(code, snap))
	}
}

func GetDraft(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		snap, err := svc.Draft(r.Context(), code)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot(code, snap))
	}
}

// mutation wraps a draft-changing call and answers with the new snapshot.
func mutation(logger *zap.Logger, fn func(r *http.Request, code string) (lobby.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		snap, err := fn(r, code)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot(code, snap))
	}
}

func ApplyAction(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return mutation(logger, func(r *http.Request, code string) (lobby.Snapshot, error) {
		var req types.ActionRequest
		if err := decode(r, &req); err != nil {
			return lobby.Snapshot{}, err
		}
		return svc.ApplyAction(r.Context(), code, req.Champion)
	})
}

func RandomAction(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return mutation(logger, func(r *http.Request, code string) (lobby.Snapshot, error) {
		return svc.RandomAction(r.Context(), code)
	})
}

func Undo(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return mutation(logger, func(r *http.Request, code string) (lobby.Snapshot, error) {
		return svc.Undo(r.Context(), code)
	})
}

func Reset(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return mutation(logger, func(r *http.Request, code string) (lobby.Snapshot, error) {
		return svc.Reset(r.Context(), code)
	})
}

func SetHome(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return mutation(logger, func(r *http.Request, code string) (lobby.Snapshot, error) {
		var req types.HomeRequest
		if err := decode(r, &req); err != nil {
			return lobby.Snapshot{}, err
		}
		side, err := engine.ParseTeam(req.Side)
		if err != nil {
			return lobby.Snapshot{}, err
		}
		return svc.SetHomeSide(r.Context(), code, side)
	})
}

func SetTeams(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return mutation(logger, func(r *http.Request, code string) (lobby.Snapshot, error) {
		var req types.TeamsRequest
		if err := decode(r, &req); err != nil {
			return lobby.Snapshot{}, err
		}
		return svc.SetTeams(r.Context(), code, req.Blue, req.Red)
	})
}

// GetPhase answers with the current step, or the next one with ?next=true.
func GetPhase(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		phase := svc.CurrentPhase
		if r.URL.Query().Get("next") == "true" {
			phase = svc.NextPhase
		}
		p, err := phase(r.Context(), code)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func GetCandidates(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		p, err := delta.ParsePerspective(r.URL.Query().Get("perspective"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		ranking, err := svc.RankCandidates(r.Context(), code, p)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewCandidatesResponse(ranking, warnings(ranking.Warnings)))
	}
}

// Advise always answers 200 once the draft is found; a failed advisory call
// is reported in the body next to the ranking.
func Advise(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adv, err := svc.Advise(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		resp := types.AdviceResponse{Advice: adv}
		if adv.Ranking != nil {
			resp.Candidates = adv.Ranking.Candidates
		}
		if adv.Err != nil {
			resp.Error = adv.Err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
