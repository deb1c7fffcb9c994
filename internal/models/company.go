package models

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Town      string    `json:"town"`
	CreatedAt time.Time `json:"created_at"`
}
