// Command dirsync runs a single reconciliation pass from the directory
// into the local record store and prints the summary. It shares its
// configuration with the bridge service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/corpdir/adbridge/internal/bridge/app"
	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/service"
	"github.com/corpdir/adbridge/internal/bridge/store/drivers/sqlite"
	"github.com/corpdir/adbridge/pkg/slogx"
)

func main() {
	var (
		scope  = flag.String("scope", "", "directory subtree to reconcile, defaults to the configured search base")
		update = flag.Bool("update", false, "overwrite directory-mapped fields on existing records")
	)
	flag.Parse()

	cfg := app.LoadConfig()
	logger := slogx.New(slogx.Config{
		Service: "dirsync",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	st, err := sqlite.NewStore(fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.DatabaseFile))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	if err := st.ApplyMigrations(); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	mgr, err := directory.NewSessionManager(directory.Config{
		ServerURL:  cfg.DirectoryURL,
		BindDN:     cfg.DirectoryBindDN,
		BindSecret: cfg.DirectoryBindPass,
		BaseDN:     cfg.DirectoryBaseDN,
		SearchBase: cfg.DirectorySearch,
		Domain:     cfg.DirectoryDomain,
		StartTLS:   cfg.DirectoryStartTLS,
		Timeout:    cfg.DirectoryTimeout,
		PoolSize:   1,
	})
	if err != nil {
		log.Fatalf("failed to connect to directory: %v", err)
	}
	defer mgr.Close()

	defaultScope := cfg.DirectorySearch
	if defaultScope == "" {
		defaultScope = cfg.DirectoryBaseDN
	}
	syncService := &service.SyncService{
		Directory:    mgr,
		Store:        st,
		DefaultScope: defaultScope,
	}

	ctx := slogx.WithContext(context.Background(), logger)
	summary, err := syncService.Run(ctx, *scope, *update)
	if err != nil {
		logger.Error("sync run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("created %d, updated %d, skipped %d, total %d\n",
		summary.Created, summary.Updated, summary.Skipped, summary.Total)
}
