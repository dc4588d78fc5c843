package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/redbco/ngram-search/internal/config"
	"github.com/redbco/ngram-search/internal/database/mysql"
	"github.com/redbco/ngram-search/internal/ngram"
	"github.com/redbco/ngram-search/internal/settings"
	"github.com/redbco/ngram-search/pkg/logger"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Switch the full-text index to the ngram parser",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, ngram.Install)
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Switch the full-text index back to the default parser",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, ngram.Uninstall)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the server supports the ngram parser and the table has the expected shape",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer env.Close()

		version, err := env.client.ServerVersion(cmd.Context())
		if err != nil {
			return err
		}
		if err := ngram.CheckServerVersion(version); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server %s supports the ngram parser\n", version)

		schema, err := env.client.TableSchema(cmd.Context(), ngram.FulltextTable)
		if err != nil {
			return err
		}
		fk, err := ngram.ForeignKeyName(schema, ngram.ProcessStatus)
		if err != nil {
			return err
		}
		idx, err := ngram.FulltextIndexName(schema, ngram.ProcessStatus)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Table %s: foreign key %s, full-text index %s\n", ngram.FulltextTable, fk, idx)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which parser the full-text index uses",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer env.Close()

		mode, idx, err := ngram.Status(cmd.Context(), env.client)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Index %s on %s: %s\n", idx.Name, ngram.FulltextTable, mode)
		return nil
	},
}

var setPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Store the database password in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		password, ok, err := config.TerminalPrompt(cmd.ErrOrStderr())(fmt.Sprintf("MySQL password for %s: ", cfg.Database.Username))
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("set-password needs an interactive terminal")
		}
		if err := cfg.StorePassword(password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password stored in keyring service %s\n", cfg.Database.KeyringService)
		return nil
	},
}

func setupCommands() {
	for _, c := range []*cobra.Command{installCmd, uninstallCmd} {
		c.Flags().Bool("dry-run", false, "Print the statements without executing them")
		c.Flags().Bool("verify", false, "Re-read the schema afterwards and check the result")
		c.Flags().Bool("skip-settings", false, "Do not write or remove module settings")
	}

	rootCmd.AddCommand(installCmd, uninstallCmd, checkCmd, statusCmd, setPasswordCmd)
}

type lifecycleFunc func(ctx context.Context, conn ngram.Conn, opts ngram.Options) (*ngram.Result, error)

func runLifecycle(cmd *cobra.Command, fn lifecycleFunc) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verify, _ := cmd.Flags().GetBool("verify")
	skipSettings, _ := cmd.Flags().GetBool("skip-settings")

	env, err := openEnvironment(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	opts := ngram.Options{
		Logger: env.log,
		Verify: verify || env.cfg.Verify,
		DryRun: dryRun,
	}
	if !skipSettings && env.store != nil {
		defaults, err := settings.DefaultSettings()
		if err != nil {
			return err
		}
		opts.Settings = settings.NewBootstrapper(env.store, defaults)
	}

	result, err := fn(cmd.Context(), env.client, opts)
	if err != nil {
		return err
	}

	if dryRun {
		for _, stmt := range result.Statements {
			fmt.Fprintln(cmd.OutOrStdout(), stmt+";")
		}
	}
	return nil
}

// environment bundles what a command needs to talk to the CMS database
type environment struct {
	cfg    *config.Config
	log    *logger.Logger
	client *mysql.Client
	store  settings.Store
	redis  *redis.Client
}

func (e *environment) Close() {
	if e.redis != nil {
		e.redis.Close()
	}
	if e.client != nil {
		e.client.Close()
	}
}

func loadConfig() (*config.Config, error) {
	if dsnFlag != "" {
		os.Setenv(config.EnvDSN, dsnFlag)
	}
	if logLevel != "" {
		os.Setenv(config.EnvLogLevel, logLevel)
	}
	return config.Load(configFile)
}

func openEnvironment(ctx context.Context, promptOut io.Writer) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolvePassword(config.TerminalPrompt(promptOut)); err != nil {
		return nil, err
	}

	log := logger.New("ngram-search", Version)
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}

	client, err := mysql.Connect(ctx, cfg.ConnectionConfig())
	if err != nil {
		return nil, err
	}
	env := &environment{cfg: cfg, log: log, client: client}

	switch cfg.Settings.Backend {
	case config.SettingsBackendSQL:
		env.store = settings.NewSQLStore(client.DB())
	case config.SettingsBackendRedis:
		env.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Settings.RedisAddr,
			Password: cfg.Settings.RedisPassword,
			DB:       cfg.Settings.RedisDB,
		})
		if err := env.redis.Ping(ctx).Err(); err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to connect to redis settings store: %w", err)
		}
		env.store = settings.NewRedisStore(env.redis, cfg.Settings.RedisKey)
	}

	return env, nil
}

// describeError adds a hint for the MySQL errors a half-applied run produces
func describeError(err error) string {
	msg := err.Error()
	switch mysql.ServerErrorNumber(err) {
	case mysql.ErrNumCantDropFieldOrKey:
		return msg + " (the index or foreign key is already gone; a previous run may have stopped halfway, compare the table with `ngram-search check`)"
	case mysql.ErrNumDupKeyName:
		return msg + " (the index or constraint already exists)"
	case mysql.ErrNumFTParserNotFound:
		return msg + " (the server has no ngram parser plugin)"
	case mysql.ErrNumTableAccessDenied:
		return msg + " (the database user needs ALTER privilege on fulltext_search)"
	}
	return msg
}
