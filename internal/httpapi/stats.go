package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-assistant/internal/assistant"
	"github.com/DoyleJ11/lol-draft-assistant/internal/source"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
	"github.com/DoyleJ11/lol-draft-assistant/internal/types"
)

// ListChampions answers the champion registry, most picked first.
// ?sort=winrate orders by win rate, ?limit=N caps the list.
func ListChampions(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, logger, fmt.Errorf("%w: limit %q", errBadRequest, v))
				return
			}
			limit = n
		}

		m := svc.Model()
		var champs []*stats.Champion
		switch r.URL.Query().Get("sort") {
		case "", "games":
			champs = m.MostPicked(limit)
		case "winrate":
			champs = m.HighestWinrate(limit)
		default:
			writeError(w, logger, fmt.Errorf("%w: sort must be games or winrate", errBadRequest))
			return
		}

		out := make([]types.ChampionResponse, 0, len(champs))
		for _, c := range champs {
			out = append(out, types.NewChampionResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetTeam(svc *assistant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := svc.Model().Team(chi.URLParam(r, "name"))
		if !ok {
			writeJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "team not found"})
			return
		}
		writeJSON(w, http.StatusOK, types.NewTeamResponse(t))
	}
}

// GetTeamTopPicks answers the draft panel for a team. With ?code= the
// champions already used in that draft are left out.
func GetTeamTopPicks(svc *assistant.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		picks, err := svc.TeamTopPicks(r.Context(), chi.URLParam(r, "name"), r.URL.Query().Get("code"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewTopPicksResponse(picks))
	}
}

func GetPlayer(svc *assistant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := svc.Model().Player(chi.URLParam(r, "name"))
		if !ok {
			writeJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "player not found"})
			return
		}
		writeJSON(w, http.StatusOK, types.NewPlayerResponse(p))
	}
}

// Reload loads a CSV export sent as the request body, or the configured
// records file when the body is empty.
func Reload(svc *assistant.Service, recordsPath string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			report stats.Report
			err    error
		)
		if r.ContentLength > 0 {
			var raw []stats.RawRecord
			raw, err = source.ReadRecords(r.Body)
			if err != nil {
				writeError(w, logger, errors.Join(errBadRequest, err))
				return
			}
			report, err = svc.Load(r.Context(), "upload", raw)
		} else {
			if recordsPath == "" {
				writeError(w, logger, fmt.Errorf("%w: no records file configured", errBadRequest))
				return
			}
			report, err = svc.LoadFile(r.Context(), recordsPath)
		}

		if errors.Is(err, stats.ErrDuplicateLoad) {
			writeJSON(w, http.StatusConflict, types.ErrorResponse{Error: err.Error()})
			return
		}
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ReloadResponse{
			Fingerprint: fmt.Sprintf("%016x", report.Fingerprint),
			Accepted:    report.Accepted,
			Skipped:     report.Skipped,
			Warnings:    warnings(report.Warnings),
		})
	}
}
