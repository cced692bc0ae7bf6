package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema returns the DDL statements for the dialect in file order.
func Schema(d Dialect) ([]string, error) {
	raw, err := schemaFS.ReadFile("schema/" + d.String() + ".sql")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, stmt := range strings.Split(string(raw), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Migrate creates missing tables and indexes. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	stmts, err := Schema(s.d)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	s.log.Info("schema migrated", zap.String("dialect", s.d.String()), zap.Int("statements", len(stmts)))
	return nil
}
