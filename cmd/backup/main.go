// Command backup manages snapshots of the cronograma database from the
// command line: create (default), restore, list and prune.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"example.com/cronograma/internal/backup"
	"example.com/cronograma/internal/config"
	"example.com/cronograma/internal/persistence/sqlite"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DBPath, "path to the sqlite database")
	dir := flag.String("dir", cfg.BackupPath, "backup directory")
	restore := flag.String("restore", "", "restore from the given snapshot file")
	list := flag.Bool("list", false, "list available snapshots")
	prune := flag.Bool("prune", false, "only delete snapshots past retention")
	retention := flag.Int("retention", cfg.BackupRetentionDays, "retention in days")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		sugar.Fatalw("failed to open database", "path", *dbPath, "error", err)
	}
	defer db.Close()

	engine := backup.NewEngine(db, *dir, *retention, sugar)
	ctx := context.Background()

	switch {
	case *list:
		infos, err := engine.List()
		if err != nil {
			sugar.Fatalw("failed to list snapshots", "error", err)
		}
		if len(infos) == 0 {
			fmt.Println("no hay backups disponibles")
			return
		}
		for _, info := range infos {
			fmt.Printf("%s\t%d bytes\t%s\n", info.Filename, info.Size, info.Created.Format("2006-01-02 15:04:05"))
		}
	case *restore != "":
		if err := engine.Restore(ctx, *restore); err != nil {
			sugar.Fatalw("restore failed", "file", *restore, "error", err)
		}
		fmt.Printf("datos restaurados desde %s\n", *restore)
	case *prune:
		removed, err := engine.Prune(*retention)
		if err != nil {
			sugar.Fatalw("prune failed", "error", err)
		}
		fmt.Printf("backups eliminados: %d\n", removed)
	default:
		path, err := engine.Create(ctx)
		if err != nil {
			sugar.Fatalw("backup failed", "error", err)
		}
		fmt.Printf("backup creado: %s\n", path)
	}
}
