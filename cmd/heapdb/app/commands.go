package app

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/HeapDB/src/app"
)

const defaultConfigPath = "heapdb.yaml"

func base() app.Base {
	return app.Base{
		ConfigPath: rootCmd.Options.ConfigPath,
		DataDir:    rootCmd.Options.DataDir,
	}
}

func initInit() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Writes a default configuration and creates the data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := rootCmd.Options.ConfigPath
			if path == "" {
				path = defaultConfigPath
			}

			c, err := app.InitConfig(afero.NewOsFs(), path)
			if err != nil {
				return err
			}
			cmd.Printf("config %s, data dir %s\n", path, c.DataDir)
			return nil
		},
	})
}

func initStress() {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Runs concurrent insert transactions against a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), &app.StressEntrypoint{
				Base:    base(),
				EnvFile: envFile,
				Out:     cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with HEAPDB_STRESS_* settings")

	rootCmd.AddCommand(cmd)
}

func initDump() {
	var (
		schema     string
		withTuples bool
	)

	cmd := &cobra.Command{
		Use:   "dump <table>",
		Short: "Prints slot occupancy of every page of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), &app.DumpEntrypoint{
				Base:       base(),
				Table:      args[0],
				Schema:     schema,
				WithTuples: withTuples,
				Out:        cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "int,int", "comma separated field types (int, string)")
	cmd.Flags().BoolVar(&withTuples, "tuples", false, "print every tuple")

	rootCmd.AddCommand(cmd)
}
