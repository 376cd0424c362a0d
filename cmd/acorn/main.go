package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/acorn"
	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/logger"
	"github.com/ajitpratap0/acorn/pkg/nut"
	"github.com/ajitpratap0/acorn/pkg/trunk"
)

var version = "0.1.0"

// record is the CLI's payload type: raw JSON passed through untouched so
// the tool works against any collection.
type record = json.RawMessage

func main() {
	// Load .env if present; missing is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix("ACORN")
	viper.AutomaticEnv()

	root := &cobra.Command{
		Use:   "acorn",
		Short: "Acorn - embedded persistence with pluggable backends",
		Long: `Acorn stores JSON records in a local trunk: an embedded store with
pluggable backends (memory, file, sqlite), an ordered transformation
pipeline (compression, encryption, checksums) and buffered writes.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "YAML config file (flags override nothing when set)")
	flags.String("name", "default", "trunk instance name")
	flags.StringP("backend", "b", "file", "backend type: memory, file or sqlite")
	flags.String("path", ".acorn", "storage directory for the file backend")
	flags.String("dsn", "", "connection string for the sqlite backend")
	flags.String("log-level", "warn", "log verbosity: debug, info, warn, error")
	for _, name := range []string{"config", "name", "backend", "path", "dsn", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		versionCmd(),
		backendsCmd(),
		stashCmd(),
		crackCmd(),
		tossCmd(),
		listCmd(),
		stagesCmd(),
		exportCmd(),
		importCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Acorn v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List available storage backends",
		Run: func(cmd *cobra.Command, args []string) {
			for _, b := range acorn.Backends() {
				fmt.Println(b)
			}
		},
	}
}

func stashCmd() *cobra.Command {
	var id string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "stash [json-payload]",
		Short: "Store a record (reads the payload from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(args)
			if err != nil {
				return err
			}

			if id == "" {
				id = uuid.NewString()
			}
			n := nut.New[record](id, payload)
			if ttl > 0 {
				n = n.WithExpiry(time.Now().Add(ttl))
			}

			return withTrunk(cmd.Context(), func(ctx context.Context, tr trunk.Trunk[record]) error {
				if err := tr.Stash(ctx, n); err != nil {
					return err
				}
				fmt.Println(id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "record id (generated when omitted)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "optional time-to-live, e.g. 24h")
	return cmd
}

func crackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crack <id>",
		Short: "Read a record and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTrunk(cmd.Context(), func(ctx context.Context, tr trunk.Trunk[record]) error {
				n, ok, err := tr.Crack(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("record %q not found", args[0])
				}
				return printJSON(n)
			})
		},
	}
}

func tossCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toss <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTrunk(cmd.Context(), func(ctx context.Context, tr trunk.Trunk[record]) error {
				return tr.Toss(ctx, args[0])
			})
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTrunk(cmd.Context(), func(ctx context.Context, tr trunk.Trunk[record]) error {
				nuts, err := tr.CrackAll(ctx)
				if err != nil {
					return err
				}
				for _, n := range nuts {
					fmt.Printf("%s\t%s\tv%d\n", n.ID, n.Timestamp.Format(time.RFC3339), n.Version)
				}
				return nil
			})
		},
	}
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Show the configured transformation pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTrunk(cmd.Context(), func(ctx context.Context, tr trunk.Trunk[record]) error {
				caps, err := json.Marshal(tr.Capabilities())
				if err != nil {
					return err
				}
				fmt.Printf("capabilities: %s\n", caps)
				for _, s := range tr.Stages() {
					fmt.Printf("%3d  %-12s %s\n", s.Sequence(), s.Name(), s.Signature())
				}
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export all records to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTrunk(cmd.Context(), func(ctx context.Context, tr trunk.Trunk[record]) error {
				nuts, err := tr.ExportChanges(ctx)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(nuts, "", "  ")
				if err != nil {
					return err
				}
				return os.WriteFile(args[0], data, 0o644)
			})
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import records from a JSON file produced by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var nuts []nut.Nut[record]
			if err := json.Unmarshal(data, &nuts); err != nil {
				return err
			}
			return withTrunk(cmd.Context(), func(ctx context.Context, tr trunk.Trunk[record]) error {
				if err := tr.ImportChanges(ctx, nuts); err != nil {
					return err
				}
				fmt.Printf("imported %d records\n", len(nuts))
				return nil
			})
		},
	}
}

// loadConfig builds the trunk configuration from the config file when one
// is given, from flags and ACORN_* environment variables otherwise.
func loadConfig() (*config.BaseConfig, error) {
	if path := viper.GetString("config"); path != "" {
		cfg := &config.BaseConfig{}
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}

	cfg := config.NewBaseConfig(viper.GetString("name"), viper.GetString("backend"))
	cfg.Storage.Path = viper.GetString("path")
	cfg.Storage.DSN = viper.GetString("dsn")
	cfg.Observability.LogLevel = viper.GetString("log-level")
	return cfg, cfg.Validate()
}

// withTrunk opens the configured trunk, runs fn, and closes the trunk.
// Close runs even when fn fails; its disposal error wins only when fn
// succeeded.
func withTrunk(ctx context.Context, fn func(context.Context, trunk.Trunk[record]) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Observability.LogLevel, Encoding: "console"}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	tr, err := acorn.Open[record](cfg, logger.Get())
	if err != nil {
		return err
	}

	fnErr := fn(ctx, tr)
	if closeErr := tr.Close(ctx); fnErr == nil {
		fnErr = closeErr
	}
	return fnErr
}

func readPayload(args []string) (record, error) {
	var raw []byte
	if len(args) == 1 {
		raw = []byte(args[0])
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading payload from stdin: %w", err)
		}
		raw = data
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return record(raw), nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
