package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/datasource"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/models"
)

const (
	maxRaceNumber    = 20
	maxFieldSize     = 24
	maxOddsToOne     = 999
	maxPostTimeAhead = 30 * 24 * time.Hour
)

// DataValidator validates race, horse and result data before it is stored
type DataValidator struct {
	validate *validator.Validate
	logger   *logrus.Entry
	now      func() time.Time
}

// NewDataValidator creates a new data validator
func NewDataValidator(log *logrus.Logger) *DataValidator {
	return &DataValidator{
		validate: validator.New(),
		logger:   logger.OrDiscard(log).WithField("component", "validator"),
		now:      time.Now,
	}
}

// ValidateRace validates race data for required fields and constraints, horses included
func (v *DataValidator) ValidateRace(race *models.Race) []string {
	var errs []string

	if err := v.validate.Struct(race); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}

	if race.RaceNumber > maxRaceNumber {
		errs = append(errs, fmt.Sprintf("race_number out of range (1-%d), got %d", maxRaceNumber, race.RaceNumber))
	}

	if !race.PostTime.IsZero() && race.PostTime.After(v.now().Add(maxPostTimeAhead)) {
		errs = append(errs, "post_time more than 30 days in future")
	}

	if len(race.Horses) == 0 {
		errs = append(errs, "race has no horses")
	}
	if len(race.Horses) > maxFieldSize {
		errs = append(errs, fmt.Sprintf("field of %d exceeds %d horses", len(race.Horses), maxFieldSize))
	}

	seen := make(map[int]bool, len(race.Horses))
	for _, h := range race.Horses {
		if seen[h.PP] {
			errs = append(errs, fmt.Sprintf("duplicate post position %d", h.PP))
		}
		seen[h.PP] = true
		errs = append(errs, v.ValidateHorse(h)...)
	}

	return errs
}

// ValidateHorse validates horse data for required fields and constraints
func (v *DataValidator) ValidateHorse(horse *models.Horse) []string {
	var errs []string

	if err := v.validate.Struct(horse); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}

	if horse.LiveOdds.IsNegative() {
		errs = append(errs, fmt.Sprintf("pp %d: live odds cannot be negative", horse.PP))
	}
	if horse.LiveOdds.IntPart() > maxOddsToOne {
		errs = append(errs, fmt.Sprintf("pp %d: live odds %s exceed %d-1", horse.PP, horse.LiveOdds, maxOddsToOne))
	}

	return errs
}

// ValidateResult checks a declared finish against the field that ran
func (v *DataValidator) ValidateResult(result *datasource.ResultData, field []models.Horse) []string {
	var errs []string

	if len(result.Finish) == 0 {
		errs = append(errs, "result has no finishers")
	}

	known := make(map[int]bool, len(field))
	for _, h := range field {
		known[h.PP] = true
	}

	seen := make(map[int]bool, len(result.Finish))
	for _, pp := range result.Finish {
		if seen[pp] {
			errs = append(errs, fmt.Sprintf("post position %d finishes twice", pp))
		}
		seen[pp] = true
		if len(known) > 0 && !known[pp] {
			errs = append(errs, fmt.Sprintf("post position %d not in field", pp))
		}
	}

	for _, p := range result.Payoffs {
		if !p.Payoff.IsPositive() {
			errs = append(errs, fmt.Sprintf("%s payoff must be positive", p.BetType))
		}
	}

	return errs
}

func fieldErrors(err error) []string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return out
}
