// Command mapicli is an interactive SQL REPL over a mapi.Pool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mapidb/mapi-go"
)

func main() {
	root := &cobra.Command{
		Use:   "mapicli",
		Short: "Interactive SQL client for MAPI servers",
	}
	root.AddCommand(newConnectCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newConnectCmd() *cobra.Command {
	var host string
	var port int
	var database string
	var username string
	var password string
	var poolSize int

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open a pool against a MAPI server and start a REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := mapi.Options{
				Host:     host,
				Port:     port,
				Database: database,
				Username: username,
				Password: password,
				PoolSize: poolSize,
				Name:     "mapicli",
			}

			ctx := context.Background()
			pool, err := mapi.StartPool(ctx, opts)
			if err != nil {
				return fmt.Errorf("starting pool: %w", err)
			}
			defer pool.Close()

			return runREPL(ctx, pool)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&host, "host", mapi.DefaultHost, "server host")
	flags.IntVar(&port, "port", mapi.DefaultPort, "server port")
	flags.StringVar(&database, "database", mapi.DefaultDatabase, "database name")
	flags.StringVar(&username, "username", mapi.DefaultUsername, "username")
	flags.StringVar(&password, "password", mapi.DefaultPassword, "password")
	flags.IntVar(&poolSize, "pool-size", mapi.DefaultPoolSize, "number of pooled connections")

	return cmd
}
