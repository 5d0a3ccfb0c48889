// cmd/mirrorctl/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	coldom "storefront/internal/domain/collection"
	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/logging"
	shared "storefront/internal/platform/di/shared"
)

// storeOpener returns the configured store and a release func.
type storeOpener func(ctx context.Context) (coldom.DocumentStore, func() error, error)

type deleter interface {
	Delete(ctx context.Context, collection, key string) error
}

type options struct {
	configPath string
	backend    string
	collection string
	user       string
	verbose    bool
	timeout    time.Duration
}

func main() {
	opts := &options{}
	root := newRootCmd(opts, infraOpener(opts), os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func infraOpener(opts *options) storeOpener {
	return func(ctx context.Context) (coldom.DocumentStore, func() error, error) {
		cfg, err := appcfg.Load(opts.configPath)
		if err != nil {
			return nil, nil, err
		}
		if b := strings.TrimSpace(opts.backend); b != "" {
			cfg.DocumentStore = b
			if err := cfg.Validate(); err != nil {
				return nil, nil, err
			}
		}
		level := "warn"
		if opts.verbose {
			level = "debug"
		}
		logger, err := logging.New(level, "console")
		if err != nil {
			return nil, nil, err
		}
		inf, err := shared.NewInfra(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return inf.DocumentStore, func() error {
			_ = logger.Sync()
			return inf.Close()
		}, nil
	}
}

func newRootCmd(opts *options, open storeOpener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "mirrorctl",
		Short:         "Inspect and reset mirrored cart/wishlist documents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("STOREFRONT_CONFIG"), "TOML config file")
	root.PersistentFlags().StringVar(&opts.backend, "store", "", "override document_store (firestore|redis|postgres|memory)")
	root.PersistentFlags().StringVar(&opts.collection, "collection", coldom.DefaultCartCollection, "remote collection name")
	root.PersistentFlags().StringVar(&opts.user, "user", "", "user identity (document key)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the mirrored document as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, opts, open, func(ctx context.Context, store coldom.DocumentStore) error {
					raw, err := store.Get(ctx, opts.collection, opts.user)
					if err != nil {
						return fmt.Errorf("get %s/%s: %w", opts.collection, opts.user, err)
					}
					if raw == nil {
						return fmt.Errorf("get %s/%s: document not found", opts.collection, opts.user)
					}
					// normalized through the codec
					doc := coldom.DecodeDocument(raw)
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(doc.Encode())
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Replace the document with an empty collection",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, opts, open, func(ctx context.Context, store coldom.DocumentStore) error {
					doc := coldom.NewRemoteDocument(opts.user, coldom.Collection{}, time.Now())
					if err := store.Set(ctx, opts.collection, opts.user, doc.Encode(), coldom.SetOptions{Merge: false}); err != nil {
						return fmt.Errorf("clear %s/%s: %w", opts.collection, opts.user, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "cleared %s/%s\n", opts.collection, opts.user)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Delete the document entirely",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, opts, open, func(ctx context.Context, store coldom.DocumentStore) error {
					d, ok := store.(deleter)
					if !ok {
						return errors.New("delete: store does not support deletion")
					}
					if err := d.Delete(ctx, opts.collection, opts.user); err != nil {
						return fmt.Errorf("delete %s/%s: %w", opts.collection, opts.user, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", opts.collection, opts.user)
					return nil
				})
			},
		},
	)
	return root
}

func withStore(cmd *cobra.Command, opts *options, open storeOpener, fn func(context.Context, coldom.DocumentStore) error) error {
	if strings.TrimSpace(opts.user) == "" {
		return errors.New("--user is required")
	}
	if strings.TrimSpace(opts.collection) == "" {
		return errors.New("--collection is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	store, release, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			zap.L().Warn("release failed", zap.Error(err))
		}
	}()
	return fn(ctx, store)
}
