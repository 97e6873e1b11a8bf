package config

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(cfg *Config) (*pgxpool.Pool, error) {
	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("%sDB_URL not defined", EnvPrefix)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid %sDB_URL: %w", EnvPrefix, err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ClientInfo()

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, err
	}

	return pool, nil
}
