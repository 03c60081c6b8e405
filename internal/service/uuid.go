package service

import "github.com/google/uuid"

// DefaultIDGenerator issues random UUIDs for new ingestion tasks.
type DefaultIDGenerator struct{}

func (g *DefaultIDGenerator) NewID() string {
	return uuid.New().String()
}
