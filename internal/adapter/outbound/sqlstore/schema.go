package sqlstore

import (
	"context"
	"fmt"
)

// EnsureSchema creates the favorites table and its player index if missing.
func (s *FavoriteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure %s schema: %w", s.dialect, err)
		}
	}
	return nil
}

func (s *FavoriteStore) schema() []string {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	text := "TEXT"
	if s.dialect == Postgres {
		id = "id BIGSERIAL PRIMARY KEY"
		text = "VARCHAR(200)"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	player_id %s NOT NULL,
	category %s NOT NULL,
	head_name %s NOT NULL,
	created_at BIGINT NOT NULL,
	UNIQUE (player_id, category, head_name)
)`, s.table, id, text, text, text),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_player_idx ON %s (player_id)", s.table, s.table),
	}
}
