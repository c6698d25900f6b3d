package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/storage"
)

// LinkMap stores one JSON object per creator mapping star ID to the image
// the creator linked to it. A new link replaces the old one.
type LinkMap struct {
	db *sql.DB
}

// StorageKey is the key the creator's map is stored under.
func StorageKey(user string) string {
	return config.LinkStoragePrefix + user
}

// Save stores m inline as a data URL and returns it.
func (l *LinkMap) Save(ctx context.Context, user, starID string, m domain.Media) (string, error) {
	if len(m.Data) == 0 {
		return "", domain.ErrInvalidMedia
	}
	url := storage.EncodeDataURL(m)
	if err := l.SaveURL(ctx, user, starID, url); err != nil {
		return "", err
	}
	return url, nil
}

// SaveURL links an already hosted image to the star.
func (l *LinkMap) SaveURL(ctx context.Context, user, starID, url string) error {
	return l.update(ctx, user, func(links map[string]string) {
		links[starID] = url
	})
}

func (l *LinkMap) Get(ctx context.Context, user, starID string) ([]string, error) {
	links, err := l.All(ctx, user)
	if err != nil {
		return nil, err
	}
	if url, ok := links[starID]; ok && url != "" {
		return []string{url}, nil
	}
	return nil, nil
}

func (l *LinkMap) Delete(ctx context.Context, user, starID string) error {
	return l.update(ctx, user, func(links map[string]string) {
		delete(links, starID)
	})
}

// All returns the creator's whole map.
func (l *LinkMap) All(ctx context.Context, user string) (map[string]string, error) {
	return load(ctx, l.db, StorageKey(user))
}

func (l *LinkMap) update(ctx context.Context, user string, mutate func(map[string]string)) error {
	key := StorageKey(user)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link update: %w", err)
	}
	defer tx.Rollback()

	links, err := load(ctx, tx, key)
	if err != nil {
		return err
	}
	mutate(links)

	raw, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("marshal links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO link_maps (storage_key, links, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (storage_key) DO UPDATE SET links = excluded.links, updated_at = excluded.updated_at
	`, key, string(raw), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("store links: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit link update: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func load(ctx context.Context, q queryer, key string) (map[string]string, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT links FROM link_maps WHERE storage_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	links := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, fmt.Errorf("parse links: %w", err)
	}
	return links, nil
}
