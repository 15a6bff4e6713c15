package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/example/offer-dispatch/internal/link"
	"github.com/example/offer-dispatch/internal/offer"
)

const selectLinkRule = `
SELECT mode, template
FROM link_rules
WHERE store_name = $1 AND channel = $2
`

// LinkRule implements link.RuleSource from the link_rules configuration
// table. A missing row is not an error; the resolver applies its default.
func (s *Store) LinkRule(ctx context.Context, storeName string, ch offer.Channel) (link.Rule, bool, error) {
	var (
		mode     string
		template *string
	)
	err := s.pool.QueryRow(ctx, selectLinkRule, storeName, string(ch)).Scan(&mode, &template)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return link.Rule{}, false, nil
		}
		return link.Rule{}, false, fmt.Errorf("link rule for (%s, %s): %w", storeName, ch, err)
	}
	rule := link.Rule{Mode: link.Mode(mode)}
	if template != nil {
		rule.Template = *template
	}
	return rule, true, nil
}
