package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nisimpson/attrstore"
	"github.com/nisimpson/attrstore/dynamostore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// domainStore is a store whose domains can also be dropped.
type domainStore interface {
	attrstore.Store
	DeleteDomain(ctx context.Context, name string) error
}

type app struct {
	v      *viper.Viper
	logger *zap.Logger
	store  domainStore // built from flags unless set beforehand
	notes  *attrstore.Provider[Note, string]
	now    func() time.Time
	newID  func() string
}

func newApp() *app {
	return &app{
		v:     viper.New(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "attrstore",
		Short: "Manage notes in an attribute store",
		Long: `attrstore keeps notes in a DynamoDB-backed attribute store.

Every flag can be set through an environment variable prefixed with ATTRSTORE_
(e.g. ATTRSTORE_TABLE_PREFIX=dev-). Variables are also read from a .env file.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("endpoint", "", "DynamoDB endpoint URL, e.g. "+dynamostore.DefaultLocalEndpoint)
	flags.String("region", "", "AWS region")
	flags.String("table-prefix", "", "prefix prepended to table names")
	flags.StringP("output", "o", "yaml", "output format (json, yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("wait", true, "wait for new tables to become active")

	root.AddCommand(
		a.domainCmd(),
		a.putCmd(),
		a.getCmd(),
		a.listCmd(),
		a.deleteCmd(),
	)
	return root
}

// setup loads configuration and builds the logger, store and provider.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load(".env")

	a.v.SetEnvPrefix("attrstore")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := a.setupLogger(); err != nil {
		return err
	}

	if a.store == nil {
		store, err := a.dynamoStore(cmd.Context())
		if err != nil {
			return err
		}
		a.store = store
	}

	notes, err := attrstore.New[Note, string](a.store, attrstore.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.notes = notes
	return nil
}

func (a *app) setupLogger() error {
	level, err := zap.ParseAtomicLevel(a.v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *app) dynamoStore(ctx context.Context) (*dynamostore.Store, error) {
	var opts []func(*config.LoadOptions) error
	if region := a.v.GetString("region"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint := a.v.GetString("endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	cfg := dynamostore.DefaultConfig()
	cfg.TablePrefix = a.v.GetString("table-prefix")
	cfg.WaitForTables = a.v.GetBool("wait")
	cfg.Logger = a.logger

	return dynamostore.New(client, cfg), nil
}

// print writes v to w in the configured output format.
func (a *app) print(w io.Writer, v any) error {
	switch format := a.v.GetString("output"); format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid output format %s", format)
	}
}
