package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/store"
)

// initStore opens and migrates the run ledger. It returns a nil store when
// store.path is empty.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// requireStore is initStore for commands that only read the ledger.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run ledger disabled: set store.path (GRIDLIGHT_STORE_PATH)")
	}
	return st, nil
}
