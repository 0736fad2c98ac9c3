package app

import (
	"context"
	"fmt"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/service"
)

// initKeys builds the keychain and touches every named key once so missing
// key material fails startup instead of the first request.
func (app *Application) initKeys(ctx context.Context) error {
	app.keys = service.NewKeychain(app.db)

	for _, name := range []string{domain.KeyAccount, domain.KeyVisit, domain.KeyScene} {
		if _, err := app.keys.Key(ctx, name); err != nil {
			return fmt.Errorf("failed to initialize signing key %q: %w", name, err)
		}
	}

	app.logger.Info("signing keys ready")
	return nil
}
