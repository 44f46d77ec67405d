package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/datasource"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DataNormalizer normalizes data from various sources to standard format
type DataNormalizer struct {
	trackNameMap map[string]string // Maps provider track names to canonical names
	titleCaser   cases.Caser
	logger       *logrus.Entry
}

// NewDataNormalizer creates a new data normalizer
func NewDataNormalizer(log *logrus.Logger) *DataNormalizer {
	return &DataNormalizer{
		trackNameMap: buildTrackNameMap(),
		titleCaser:   cases.Title(language.English),
		logger:       logger.OrDiscard(log).WithField("component", "normalizer"),
	}
}

// NormalizeRace converts RaceData from any source to the internal Race model, horses included
func (n *DataNormalizer) NormalizeRace(sourceRace *datasource.RaceData) (*models.Race, error) {
	if sourceRace == nil {
		return nil, fmt.Errorf("source race is nil")
	}

	race := &models.Race{
		ID:         uuid.New(),
		SourceID:   strings.TrimSpace(sourceRace.SourceID),
		Track:      n.normalizeTrackName(sourceRace.Track),
		RaceNumber: sourceRace.RaceNumber,
		PostTime:   sourceRace.PostTime.UTC(),
		Distance:   strings.ToLower(strings.TrimSpace(sourceRace.Distance)),
		Surface:    normalizeSurface(sourceRace.Surface),
		RaceType:   strings.ToUpper(strings.TrimSpace(sourceRace.RaceType)),
		Purse:      sourceRace.Purse,
		Status:     NormalizeStatus(sourceRace.Status),
	}

	race.Horses = make([]*models.Horse, 0, len(sourceRace.Horses))
	for i := range sourceRace.Horses {
		horse, err := n.NormalizeHorse(&sourceRace.Horses[i])
		if err != nil {
			return nil, fmt.Errorf("failed to normalize horse: %w", err)
		}
		race.Horses = append(race.Horses, horse)
	}

	return race, nil
}

// NormalizeHorse converts HorseData from any source to the internal Horse model.
// Without live odds the morning line stands in; a scratched horse is disqualified.
func (n *DataNormalizer) NormalizeHorse(sourceHorse *datasource.HorseData) (*models.Horse, error) {
	if sourceHorse == nil {
		return nil, fmt.Errorf("source horse is nil")
	}

	horse := &models.Horse{
		SourceID:     sourceHorse.SourceID,
		PP:           sourceHorse.PP,
		Name:         n.sanitizeName(sourceHorse.Name),
		Jockey:       n.sanitizeName(sourceHorse.Jockey),
		Trainer:      n.sanitizeName(sourceHorse.Trainer),
		MorningLine:  n.NormalizeOdds(sourceHorse.MorningLine),
		Disqualified: sourceHorse.Scratched,
	}

	switch {
	case sourceHorse.LiveOdds != nil && !sourceHorse.LiveOdds.IsNegative():
		horse.LiveOdds = sourceHorse.LiveOdds.Round(2)
	case horse.MorningLine != nil:
		horse.LiveOdds = *horse.MorningLine
	}

	return horse, nil
}

// NormalizeOdds rounds odds-to-1 to cents, dropping negative values
func (n *DataNormalizer) NormalizeOdds(odds *decimal.Decimal) *decimal.Decimal {
	if odds == nil || odds.IsNegative() {
		return nil
	}
	rounded := odds.Round(2)
	return &rounded
}

// NormalizeStatus maps provider race states onto the race lifecycle
func NormalizeStatus(status string) models.RaceStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "open", "betting", "live":
		return models.RaceStatusOpen
	case "closed", "off", "running", "finished":
		return models.RaceStatusClosed
	case "official", "result", "resulted":
		return models.RaceStatusOfficial
	case "cancelled", "canceled", "abandoned":
		return models.RaceStatusCancelled
	default:
		return models.RaceStatusScheduled
	}
}

func normalizeSurface(surface string) string {
	switch s := strings.ToLower(strings.TrimSpace(surface)); s {
	case "d", "dirt", "fast", "sloppy", "muddy":
		return "dirt"
	case "t", "turf", "firm", "yielding":
		return "turf"
	case "aw", "synthetic", "tapeta", "polytrack", "all weather":
		return "synthetic"
	default:
		return s
	}
}

// normalizeTrackName converts provider-specific track names to canonical format
func (n *DataNormalizer) normalizeTrackName(track string) string {
	track = strings.Join(strings.Fields(track), " ")
	if track == "" {
		return ""
	}

	if canonical, ok := n.trackNameMap[strings.ToUpper(track)]; ok {
		return canonical
	}

	return n.titleCaser.String(strings.ToLower(track))
}

// sanitizeName collapses whitespace and title-cases all-caps names
func (n *DataNormalizer) sanitizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	if name == strings.ToUpper(name) {
		return n.titleCaser.String(strings.ToLower(name))
	}
	return name
}

// buildTrackNameMap returns mapping of track name variations and codes to canonical names
func buildTrackNameMap() map[string]string {
	return map[string]string{
		"SA":                  "Santa Anita",
		"SANTA ANITA":         "Santa Anita",
		"SANTA ANITA PARK":    "Santa Anita",
		"DMR":                 "Del Mar",
		"DEL MAR":             "Del Mar",
		"BEL":                 "Belmont",
		"BELMONT":             "Belmont",
		"BELMONT PARK":        "Belmont",
		"BELMONT AT SARATOGA": "Belmont",
		"SAR":                 "Saratoga",
		"SARATOGA":            "Saratoga",
		"AQU":                 "Aqueduct",
		"AQUEDUCT":            "Aqueduct",
		"CD":                  "Churchill Downs",
		"CHURCHILL DOWNS":     "Churchill Downs",
		"KEE":                 "Keeneland",
		"KEENELAND":           "Keeneland",
		"GP":                  "Gulfstream Park",
		"GULFSTREAM":          "Gulfstream Park",
		"GULFSTREAM PARK":     "Gulfstream Park",
		"OP":                  "Oaklawn Park",
		"OAKLAWN":             "Oaklawn Park",
		"OAKLAWN PARK":        "Oaklawn Park",
		"PIM":                 "Pimlico",
		"PIMLICO":             "Pimlico",
		"LRL":                 "Laurel Park",
		"LAUREL":              "Laurel Park",
		"LAUREL PARK":         "Laurel Park",
		"TAM":                 "Tampa Bay Downs",
		"TAMPA BAY DOWNS":     "Tampa Bay Downs",
		"FG":                  "Fair Grounds",
		"FAIR GROUNDS":        "Fair Grounds",
		"WO":                  "Woodbine",
		"WOODBINE":            "Woodbine",
	}
}
