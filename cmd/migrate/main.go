package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = ".migrate"
	historyTable      = "schema_migrations"
)

func loadConfig() (dsn string, files []string, err error) {
	_ = godotenv.Load()

	viper.SetConfigName(defaultConfigName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetDefault("source", "migrations/*.sql")
	_ = viper.BindEnv("dsn", "DATABASE_DSN")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return "", nil, errors.Wrap(err, "read config")
		}
	}

	dsn = viper.GetString("dsn")
	if dsn == "" {
		return "", nil, errors.New("dsn is empty, set DATABASE_DSN")
	}

	files, err = filepath.Glob(viper.GetString("source"))
	if err != nil {
		return "", nil, errors.Wrap(err, "get file glob")
	}
	sort.Strings(files)
	return dsn, files, nil
}

func applied(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	_, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+historyTable+` (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return nil, errors.Wrap(err, "create history table")
	}

	rows, err := conn.Query(ctx, `SELECT name FROM `+historyTable)
	if err != nil {
		return nil, errors.Wrap(err, "read history")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func apply(ctx context.Context, conn *pgx.Conn, file string) error {
	body, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "read migration")
	}
	name := filepath.Base(file)

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(body)); err != nil {
			return errors.Wrapf(err, "exec %s", name)
		}
		_, err := tx.Exec(ctx, `INSERT INTO `+historyTable+` (name) VALUES ($1)`, name)
		return errors.Wrapf(err, "record %s", name)
	})
}

func main() {
	dsn, files, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		panic(fmt.Errorf("connect: %w", err))
	}
	defer conn.Close(ctx)

	done, err := applied(ctx, conn)
	if err != nil {
		panic(err)
	}

	for _, file := range files {
		name := filepath.Base(file)
		if done[name] || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if err := apply(ctx, conn, file); err != nil {
			panic(fmt.Errorf("apply: %w", err))
		}
		fmt.Printf("%s applied\n", name)
	}
	fmt.Println("done")
}
