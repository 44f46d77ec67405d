package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/wager"
)

const (
	defaultRaceLimit = 20
	maxRaceLimit     = 100
)

// raceResponse is a race with its current field
type raceResponse struct {
	*models.Race
	Field []models.Horse `json:"field"`
}

type costResponse struct {
	BetType      wager.BetType   `json:"betType"`
	Horses       int             `json:"horses"`
	Amount       decimal.Decimal `json:"amount"`
	Combinations decimal.Decimal `json:"combinations"`
	Cost         decimal.Decimal `json:"cost"`
}

func (s *Server) listBetTypes(w http.ResponseWriter, r *http.Request) {
	type betType struct {
		Name          wager.BetType `json:"name"`
		Arity         int           `json:"arity"`
		Combinatorial bool          `json:"combinatorial"`
		MultiRace     bool          `json:"multiRace"`
	}
	out := make([]betType, 0, len(wager.AllBetTypes()))
	for _, bt := range wager.AllBetTypes() {
		out = append(out, betType{
			Name:          bt,
			Arity:         bt.Arity(),
			Combinatorial: bt.IsCombinatorial(),
			MultiRace:     bt.IsMultiRace(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// boxCost prices a box of n horses: /cost?betType=trifecta&horses=4&amount=1
func (s *Server) boxCost(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	betType, err := wager.ParseBetType(q.Get("betType"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := strconv.Atoi(q.Get("horses"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "horses must be a number")
		return
	}
	if err := wager.ValidateBoxSize(n); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount := wager.DefaultAmount
	if raw := q.Get("amount"); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
	}

	combinations := decimal.Zero
	if n >= 2 {
		combinations = wager.Permutations(n, wager.BoxDepth(betType))
	}

	writeJSON(w, http.StatusOK, costResponse{
		BetType:      betType,
		Horses:       n,
		Amount:       amount,
		Combinations: combinations,
		Cost:         wager.BoxCost(n, betType, amount),
	})
}

// listRaces returns upcoming races, or a single day's card with ?date=2024-05-04
func (s *Server) listRaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		races, err := s.deps.Races.GetByDateRange(r.Context(), day, day.Add(24*time.Hour))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(races))
		return
	}

	limit := defaultRaceLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = min(n, maxRaceLimit)
	}

	races, err := s.deps.Races.GetUpcoming(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(races))
}

func (s *Server) getRace(w http.ResponseWriter, r *http.Request) {
	raceID, err := uuidParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	race, err := s.deps.Races.GetByID(r.Context(), raceID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	horses, err := s.deps.Horses.Latest(r.Context(), raceID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, raceResponse{Race: race, Field: nonNil(horses)})
}

func (s *Server) getHorses(w http.ResponseWriter, r *http.Request) {
	raceID, err := uuidParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	horses, err := s.deps.Horses.Latest(r.Context(), raceID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(horses))
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	raceID, err := uuidParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Results == nil {
		writeError(w, http.StatusNotFound, models.ErrNotFound.Error())
		return
	}

	result, err := s.deps.Results.GetByRaceID(r.Context(), raceID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// getOddsHistory returns a horse's odds since ?since= (RFC 3339), default the last 24 hours
func (s *Server) getOddsHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Odds == nil {
		writeError(w, http.StatusNotFound, models.ErrNotFound.Error())
		return
	}
	horseID, err := uuidParam(r, "horseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		start, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
	}

	series, err := s.deps.Odds.GetTimeSeriesForHorse(r.Context(), horseID, start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(series))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
