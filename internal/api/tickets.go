package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/metrics"
	"github.com/yourusername/trackside/internal/session"
	"github.com/yourusername/trackside/internal/wager"
)

// ticketResponse is the state of a ticket session after a request.
// Applied is false when a click or mode change was ignored.
type ticketResponse struct {
	ID        string               `json:"id"`
	RaceID    uuid.UUID            `json:"raceId"`
	CreatedAt time.Time            `json:"createdAt"`
	Applied   *bool                `json:"applied,omitempty"`
	Added     []wager.BetSelection `json:"added,omitempty"`
	State     wager.State          `json:"state"`
}

type betTypeRequest struct {
	BetType string `json:"betType"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type modeRequest struct {
	Mode     string `json:"mode"`
	Position int    `json:"position,omitempty"`
}

func respondTicket(w http.ResponseWriter, status int, sess *session.Session, applied *bool, added []wager.BetSelection) {
	writeJSON(w, status, ticketResponse{
		ID:        sess.ID,
		RaceID:    sess.RaceID,
		CreatedAt: sess.CreatedAt,
		Applied:   applied,
		Added:     added,
		State:     sess.State(),
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.deps.Sessions.Get(chi.URLParam(r, "ticketID"))
	if err != nil {
		s.writeServiceError(w, err)
		return nil, false
	}
	return sess, true
}

// openTicket starts a session for the race. The body may carry a race context;
// the current race defaults to the race's own number.
func (s *Server) openTicket(w http.ResponseWriter, r *http.Request) {
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

	var rc wager.RaceContext
	if r.ContentLength > 0 {
		if err := decodeBody(w, r, &rc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if rc.CurrentRace <= 0 {
		rc.CurrentRace = race.RaceNumber
	}

	sess, err := s.deps.Sessions.Open(r.Context(), raceID, rc)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	respondTicket(w, http.StatusCreated, sess, nil, nil)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondTicket(w, http.StatusOK, sess, nil, nil)
}

func (s *Server) closeTicket(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Close(chi.URLParam(r, "ticketID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setBetType(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req betTypeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	betType, err := wager.ParseBetType(req.BetType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.Do(func(b *wager.Builder) { b.Construction().SetBetType(betType) })
	respondTicket(w, http.StatusOK, sess, nil, nil)
}

func (s *Server) setAmount(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.Do(func(b *wager.Builder) { b.Construction().SetAmount(req.Amount) })
	respondTicket(w, http.StatusOK, sess, nil, nil)
}

func (s *Server) setRaceContext(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var rc wager.RaceContext
	if err := decodeBody(w, r, &rc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.Do(func(b *wager.Builder) { b.SetRaceContext(rc) })
	respondTicket(w, http.StatusOK, sess, nil, nil)
}

// setMode switches construction mode. Modes the bet type does not support
// are ignored and reported with applied=false.
func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req modeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, valid := wager.ParseMode(req.Mode)
	if !valid {
		writeError(w, http.StatusBadRequest, "mode must be one of idle, box, key, with")
		return
	}

	var applied bool
	sess.Do(func(b *wager.Builder) {
		c := b.Construction()
		switch mode {
		case wager.ModeBox:
			applied = c.ActivateBox()
		case wager.ModeKey:
			applied = c.ActivateKey()
		case wager.ModeWith:
			if req.Position > 0 {
				applied = c.ActivateWithPosition(req.Position)
			} else {
				applied = c.ActivateWith()
			}
		default:
			c.Deactivate()
			applied = true
		}
	})
	respondTicket(w, http.StatusOK, sess, &applied, nil)
}

func (s *Server) selectHorse(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	pp, err := intParam(r, "pp")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var applied bool
	sess.Do(func(b *wager.Builder) { applied = b.SelectHorse(pp) })
	respondTicket(w, http.StatusOK, sess, &applied, nil)
}

func (s *Server) addToTicket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		added   []wager.BetSelection
		betType wager.BetType
	)
	sess.Do(func(b *wager.Builder) {
		betType = b.Construction().BetType()
		added = b.AddToTicket()
	})
	metrics.RecordSelectionsMaterialized(string(betType), len(added))
	respondTicket(w, http.StatusOK, sess, nil, nonNil(added))
}

func (s *Server) updateSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var applied bool
	sess.Do(func(b *wager.Builder) { applied = b.Ticket().UpdateAmount(index, req.Amount) })
	respondTicket(w, http.StatusOK, sess, &applied, nil)
}

func (s *Server) removeSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var applied bool
	sess.Do(func(b *wager.Builder) { applied = b.Ticket().RemoveSelection(index) })
	respondTicket(w, http.StatusOK, sess, &applied, nil)
}

func (s *Server) clearSelections(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.Do(func(b *wager.Builder) { b.Ticket().ClearAll() })
	respondTicket(w, http.StatusOK, sess, nil, nil)
}

func (s *Server) submitTicket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	ticket, err := sess.Submit(r.Context(), s.deps.Submitter)
	if err != nil {
		if errors.Is(err, session.ErrEmptyTicket) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.WithError(err).WithField("session_id", sess.ID).Error("Ticket submission failed")
		writeError(w, http.StatusBadGateway, "ticket submission failed")
		return
	}
	writeJSON(w, http.StatusAccepted, ticket)
}
