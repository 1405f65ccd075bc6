package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// seedFile is the on-disk market list: {"markets": [...]}.
type seedFile struct {
	Markets []domain.Market `json:"markets"`
}

// ReadSeed decodes a market list.
func ReadSeed(r io.Reader) ([]domain.Market, error) {
	var f seedFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("service: decode seed: %w", err)
	}
	return f.Markets, nil
}

// LoadSeedFile reads a market list from path.
func LoadSeedFile(path string) ([]domain.Market, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("service: open seed %s: %w", path, err)
	}
	defer f.Close()
	return ReadSeed(f)
}
