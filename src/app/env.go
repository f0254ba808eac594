package app

import (
	"os"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// workloadEnv tunes the stress workload. Values come from HEAPDB_STRESS_*
// variables, optionally seeded from a dotenv file.
type workloadEnv struct {
	Table        string `default:"stress" split_words:"true"`
	Workers      int    `default:"4" split_words:"true"`
	Txns         int    `default:"100" split_words:"true"`
	TuplesPerTxn int    `default:"10" split_words:"true"`
	DeleteEvery  int    `default:"0" split_words:"true"`
	MaxRetries   int    `default:"10" split_words:"true"`
}

func loadWorkloadEnv(envFile string) (workloadEnv, error) {
	var env workloadEnv

	if envFile != "" {
		// variables already set in the process take precedence
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return env, errors.Wrapf(err, "load %s", envFile)
		}
	}

	if err := envconfig.Process("HEAPDB_STRESS", &env); err != nil {
		return env, errors.Wrap(err, "process workload env")
	}

	switch {
	case env.Workers < 1:
		return env, errors.New("workers must be at least 1")
	case env.Txns < 0:
		return env, errors.New("txns must not be negative")
	case env.TuplesPerTxn < 1:
		return env, errors.New("tuples per txn must be at least 1")
	case env.MaxRetries < 0:
		return env, errors.New("max retries must not be negative")
	}
	return env, nil
}
