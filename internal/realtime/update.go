// Package realtime carries horse list updates between processes over Redis
// and out to browsers over websockets.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/trackside/internal/models"
)

// DefaultChannel is the Redis pub/sub channel for horse list updates
const DefaultChannel = "trackside:horse_updates"

// HorseListUpdate is the full current field for one race
type HorseListUpdate struct {
	RaceID    uuid.UUID      `json:"raceId"`
	Horses    []models.Horse `json:"horses"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// UpdateHandler consumes horse list updates
type UpdateHandler func(HorseListUpdate)

func encodeUpdate(u HorseListUpdate) ([]byte, error) {
	if u.Horses == nil {
		u.Horses = []models.Horse{}
	}
	return json.Marshal(u)
}

func decodeUpdate(payload []byte) (HorseListUpdate, error) {
	var u HorseListUpdate
	if err := json.Unmarshal(payload, &u); err != nil {
		return u, fmt.Errorf("failed to decode horse list update: %w", err)
	}
	if u.RaceID == uuid.Nil {
		return u, fmt.Errorf("horse list update has no race id")
	}
	return u, nil
}
