package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/felixgeelhaar/termax/internal/config"
	"github.com/felixgeelhaar/termax/internal/credential"
	"github.com/felixgeelhaar/termax/internal/observe"
	"github.com/felixgeelhaar/termax/internal/store"
)

const dbFile = "termax.db"

type paths struct {
	Home   string `env:"TERMAX_HOME"`
	Secret string `env:"TERMAX_SECRET"`
}

func loadPaths() paths {
	var p paths
	_ = env.Parse(&p)
	if p.Home == "" {
		home, _ := os.UserHomeDir()
		p.Home = filepath.Join(home, ".termax")
	}
	return p
}

func getStore() store.Storage {
	s, err := store.NewSQLiteStore(filepath.Join(loadPaths().Home, dbFile))
	if err != nil {
		exitErr("Failed to init store", err)
	}
	return s
}

func getConfigManager(s store.Storage) *config.Manager {
	var (
		sealer *credential.Manager
		err    error
	)
	if secret := loadPaths().Secret; secret != "" {
		sealer, err = credential.NewManagerWithSecret(secret)
	} else {
		sealer, err = credential.NewManager()
	}
	if err != nil {
		exitErr("Failed to init credentials", err)
	}
	return config.NewManager(s, sealer)
}

func newObserver() *observe.Observer {
	if jsonLogs {
		return observe.NewJSON(os.Stderr, verbose)
	}
	return observe.New(os.Stderr, verbose)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	if errors.Is(err, config.ErrNotConfigured) {
		fmt.Fprintln(os.Stderr, "Run `termax config setup` to choose a platform.")
	}
	os.Exit(1)
}
