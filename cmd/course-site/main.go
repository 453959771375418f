package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nbolat/course-site/internal/profile"
	"github.com/nbolat/course-site/server"
	"github.com/nbolat/course-site/store"
	"github.com/nbolat/course-site/store/db"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "course-site",
	Short: "Course landing site with an AI chat assistant",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		serverProfile, err := loadProfile()
		if err != nil {
			return err
		}

		st, err := openStore(ctx, serverProfile)
		if err != nil {
			return err
		}

		s, err := server.NewServer(ctx, serverProfile, st)
		if err != nil {
			st.Close()
			return err
		}

		if err := s.Start(ctx); err != nil {
			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", slog.String("signal", sig.String()))
		case <-ctx.Done():
		}

		s.Shutdown(ctx)
		return nil
	},
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Show the most recent form submissions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		serverProfile, err := loadProfile()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, serverProfile)
		if err != nil {
			return err
		}
		defer st.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		list, err := st.ListFormSubmissions(ctx, limit)
		if err != nil {
			return err
		}
		count, err := st.CountFormSubmissions(ctx)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(list)
		}
		fmt.Printf("Всего заявок: %d\n", count)
		for _, sub := range list {
			fmt.Printf("#%d  %s  %s  %s  (%s)\n",
				sub.ID, sub.SubmittedAt, sub.Name, sub.Phone, sub.ContactMethod)
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the most recent analytics events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		serverProfile, err := loadProfile()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, serverProfile)
		if err != nil {
			return err
		}
		defer st.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		list, err := st.ListUserEvents(ctx, limit)
		if err != nil {
			return err
		}
		count, err := st.CountUserEvents(ctx)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(list)
		}
		fmt.Printf("Всего событий: %d\n", count)
		for _, event := range list {
			fmt.Printf("#%d  %s  user=%s  page=%s/%s  spent=%ds  scroll=%d%%  action=%s\n",
				event.ID, event.ReceivedAt, event.UserID, event.PageName, event.PageVariant,
				event.TimeSpentSec, event.ScrollDepthPerc, event.FinalAction)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		serverProfile, err := loadProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), serverProfile)
		if err != nil {
			return err
		}
		return st.Close()
	},
}

// loadProfile builds the profile from flags (via viper) and environment.
func loadProfile() (*profile.Profile, error) {
	serverProfile := &profile.Profile{
		Mode:      viper.GetString("mode"),
		Addr:      viper.GetString("addr"),
		Port:      viper.GetInt("port"),
		Data:      viper.GetString("data"),
		StaticDir: viper.GetString("static-dir"),
		Version:   version,
	}
	serverProfile.FromEnv()
	if err := serverProfile.Validate(); err != nil {
		return nil, err
	}
	return serverProfile, nil
}

// openStore opens the sqlite database and applies pending migrations.
func openStore(ctx context.Context, serverProfile *profile.Profile) (*store.Store, error) {
	sqlDB, err := db.NewDB(serverProfile)
	if err != nil {
		return nil, err
	}
	st := store.New(sqlDB, serverProfile)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address for the server")
	rootCmd.PersistentFlags().Int("port", 3000, "binding port for the server")
	rootCmd.PersistentFlags().String("data", "./data", "data directory")
	rootCmd.PersistentFlags().String("static-dir", "./dist", "directory the landing pages are served from")

	for _, flag := range []string{"mode", "addr", "port", "data", "static-dir"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("course")
	viper.AutomaticEnv()

	for _, cmd := range []*cobra.Command{leadsCmd, eventsCmd} {
		cmd.Flags().Int("limit", 10, "number of rows to show")
		cmd.Flags().Bool("json", false, "output as JSON")
	}
	rootCmd.AddCommand(leadsCmd, eventsCmd, migrateCmd)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
