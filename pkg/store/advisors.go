package store

import (
	"context"
	"fmt"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// SyncAdvisors upserts the startup-loaded advisor configuration into the
// advisors table. Advisors are config, loaded once by pkg/config; the
// store's advisors table exists so dimensional_profiles can carry a
// foreign key and so GetAdvisor/ListAdvisors have one source of truth
// shared by the API and the retrieval engine.
func (s *Store) SyncAdvisors(ctx context.Context, advisors []*models.Advisor) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin advisor sync transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, adv := range advisors {
		_, err := tx.Exec(ctx, `
			INSERT INTO advisors (id, display_name, biography, prompt_body, focus_areas, adapter_handle, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				biography = EXCLUDED.biography,
				prompt_body = EXCLUDED.prompt_body,
				focus_areas = EXCLUDED.focus_areas,
				adapter_handle = EXCLUDED.adapter_handle,
				category = EXCLUDED.category`,
			adv.ID, adv.DisplayName, adv.Biography, adv.PromptBody, adv.FocusAreas,
			nullableString(adv.AdapterHandle), adv.Category)
		if err != nil {
			return fmt.Errorf("upsert advisor %q: %w", adv.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetAdvisor returns one advisor by id, or ErrNotFound.
func (s *Store) GetAdvisor(ctx context.Context, id string) (*models.Advisor, error) {
	row := s.pool.QueryRow(ctx, advisorSelectColumns+` FROM advisors WHERE id = $1`, id)
	return scanAdvisor(row)
}

// ListAdvisors returns every configured advisor.
func (s *Store) ListAdvisors(ctx context.Context) ([]*models.Advisor, error) {
	rows, err := s.pool.Query(ctx, advisorSelectColumns+` FROM advisors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query advisors: %w", err)
	}
	defer rows.Close()

	var out []*models.Advisor
	for rows.Next() {
		adv, err := scanAdvisor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, adv)
	}
	return out, rows.Err()
}

const advisorSelectColumns = `SELECT id, display_name, biography, prompt_body, focus_areas, adapter_handle, category`

func scanAdvisor(row rowScanner) (*models.Advisor, error) {
	var adv models.Advisor
	var adapterHandle *string
	err := row.Scan(&adv.ID, &adv.DisplayName, &adv.Biography, &adv.PromptBody, &adv.FocusAreas, &adapterHandle, &adv.Category)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan advisor row: %w", err)
	}
	if adapterHandle != nil {
		adv.AdapterHandle = *adapterHandle
	}
	return &adv, nil
}
