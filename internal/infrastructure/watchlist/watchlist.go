package watchlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"holdup/internal/ports"
)

// Store persists the watchlist as a JSON array of uppercase ticker symbols.
// Single writer; insertion order is preserved.
type Store struct {
	path string
}

var _ ports.Watchlist = (*Store)(nil)

// New points the store at its backing file.
func New(path string) *Store {
	return &Store{path: path}
}

// List returns the current watchlist in insertion order.
func (s *Store) List() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read watchlist: %w", err)
	}

	var tickers []string
	if err := json.Unmarshal(data, &tickers); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}

	return tickers, nil
}

// Add appends new tickers (uppercased, deduplicated) and returns the updated
// list.
func (s *Store) Add(tickers []string) ([]string, error) {
	current, err := s.List()
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, t := range current {
		seen[t] = struct{}{}
	}

	for _, t := range tickers {
		sym := strings.ToUpper(strings.TrimSpace(t))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		current = append(current, sym)
	}

	if err := s.save(current); err != nil {
		return nil, err
	}
	return current, nil
}

// Remove drops one ticker; reports whether it was present.
func (s *Store) Remove(ticker string) (bool, error) {
	current, err := s.List()
	if err != nil {
		return false, err
	}

	sym := strings.ToUpper(strings.TrimSpace(ticker))
	kept := current[:0]
	removed := false
	for _, t := range current {
		if t == sym {
			removed = true
			continue
		}
		kept = append(kept, t)
	}

	if !removed {
		return false, nil
	}
	if err := s.save(kept); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) save(tickers []string) error {
	if tickers == nil {
		tickers = []string{}
	}

	data, err := json.MarshalIndent(tickers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal watchlist: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create watchlist dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write watchlist: %w", err)
	}
	return nil
}
