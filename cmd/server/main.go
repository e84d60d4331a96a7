package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/carbonledger/api/emissions/models"
	"github.com/carbonledger/api/internal/pkg/log"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/internal/types"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "carbonledger <command>",
	Short:         "Carbon Ledger API server and maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), runServe)
	},
}

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the indexes of every collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
			if err := s.ensureIndexes(ctx); err != nil {
				return err
			}
			log.Info("indexes are up to date")
			return nil
		})
	},
}

var (
	ingestFile   string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Import emission records from a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(ingestFile)
		if err != nil {
			return err
		}
		defer f.Close()

		return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
			count, err := s.emissions.ImportCSV(ctx, f, ingestSource, types.UserContext{Username: "cli"})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d records from %s\n", count, ingestFile)
			return nil
		})
	},
}

var promoteEmail string

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant admin rights to an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(ctx context.Context, s *services) error {
			if err := s.users.Promote(ctx, promoteEmail); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", promoteEmail)
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "CSV file with a header row")
	ingestCmd.Flags().StringVar(&ingestSource, "source", models.SourceCSVUpload, "source stamped on imported records")
	_ = ingestCmd.MarkFlagRequired("file")

	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user to promote")
	_ = promoteCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(serveCmd, indexesCmd, ingestCmd, promoteCmd)
}

// withServices loads configuration, builds the services and closes them after fn.
func withServices(ctx context.Context, fn func(context.Context, *services) error) error {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.SetDebug(cfg.Server.Debug)

	s, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func runServe(ctx context.Context, s *services) error {
	if err := s.ensureIndexes(ctx); err != nil {
		return err
	}

	app := newApp(s)
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))

	errs := make(chan error, 1)
	go func() {
		log.Info("listening on %s", addr)
		errs <- app.Listen(addr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
