// internal/platform/di/shared/infra.go
package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	dbout "storefront/internal/adapters/out/db"
	fsout "storefront/internal/adapters/out/firestore"
	memout "storefront/internal/adapters/out/memory"
	redisout "storefront/internal/adapters/out/redis"
	coldom "storefront/internal/domain/collection"
	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/database"
	firestoreinfra "storefront/internal/infra/firestore"
	redisinfra "storefront/internal/infra/redis"
)

// Infra is shared runtime infrastructure for DI.
// - owns external clients (Firestore/Redis/Postgres/FirebaseAuth/SecretManager)
// - owns the DocumentStore selected by config
// - owns config-resolved runtime settings
//
// IMPORTANT:
// Infra must NOT depend on routers or handlers.
type Infra struct {
	Config    *appcfg.Config
	Logger    *zap.Logger
	ProjectID string
	Settings  RuntimeSettings

	// Clients (owned; Close-managed). Only the selected backend is non-nil.
	Firestore     *firestoreinfra.ClientWrapper
	Redis         *goredis.Client
	DB            *database.DB
	FirebaseApp   *firebase.App
	FirebaseAuth  *firebaseauth.Client
	SecretManager *secretmanager.Client

	DocumentStore coldom.DocumentStore
}

// NewInfra initializes shared infra.
// The selected document store backend is strict (return error).
// Firebase/Auth and SecretManager are best-effort (warn + continue).
func NewInfra(ctx context.Context, cfg *appcfg.Config, logger *zap.Logger) (*Infra, error) {
	if cfg == nil {
		return nil, errors.New("shared.infra: config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", "shared.infra"))

	settings, warns, err := ResolveRuntimeSettings(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range warns {
		log.Warn(w)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	projectID := strings.TrimSpace(cfg.GetFirestoreProjectID())
	if projectID == "" && cfg.DocumentStore == appcfg.BackendFirestore {
		return nil, errors.New("shared.infra: projectID is empty (set FIRESTORE_PROJECT_ID or GCP_PROJECT_ID)")
	}

	inf := &Infra{
		Config:    cfg,
		Logger:    logger,
		ProjectID: projectID,
		Settings:  settings,
	}

	// Credentials file (optional; mainly for local dev)
	var clientOpts []option.ClientOption
	if credFile := strings.TrimSpace(cfg.FirestoreCredentialsFile); credFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credFile))
		log.Info("using credentials file for GCP clients", zap.String("path", redactPath(credFile)))
	} else {
		log.Info("using Application Default Credentials (no credentials file configured)")
	}

	// 1) Optional: Secret Manager (only needed for secret-backed settings)
	if strings.TrimSpace(cfg.RedisPasswordSecret) != "" {
		sm, err := secretmanager.NewClient(ctx, clientOpts...)
		if err != nil {
			log.Warn("secretmanager.NewClient failed; secret-backed settings disabled", zap.Error(err))
		} else {
			inf.SecretManager = sm
		}
	}

	// 2) Document store (strict)
	if err := inf.openDocumentStore(ctx, clientOpts); err != nil {
		_ = inf.Close()
		return nil, err
	}

	// 3) Firebase App/Auth (best-effort)
	if projectID != "" {
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GetFirebaseProjectID()}, clientOpts...)
		if err != nil {
			log.Warn("firebase app init failed", zap.Error(err))
		} else {
			inf.FirebaseApp = fbApp
			authClient, err := fbApp.Auth(ctx)
			if err != nil {
				log.Warn("firebase auth init failed", zap.Error(err))
			} else {
				inf.FirebaseAuth = authClient
				log.Info("firebase auth initialized")
			}
		}
	}

	// Final sanity check (panic prevention)
	if inf.DocumentStore == nil {
		_ = inf.Close()
		return nil, errors.New("shared.infra: document store is nil after initialization (unexpected)")
	}
	return inf, nil
}

func (i *Infra) openDocumentStore(ctx context.Context, clientOpts []option.ClientOption) error {
	cfg := i.Config
	log := i.Logger.With(zap.String("component", "shared.infra"), zap.String("document_store", cfg.DocumentStore))

	switch cfg.DocumentStore {
	case appcfg.BackendFirestore:
		cw, err := firestoreinfra.NewClient(ctx, i.ProjectID, i.Logger, clientOpts...)
		if err != nil {
			return fmt.Errorf("shared.infra: %w", err)
		}
		i.Firestore = cw
		i.DocumentStore = fsout.NewDocumentStoreFS(cw.Client)

	case appcfg.BackendRedis:
		password := ""
		if secret := strings.TrimSpace(cfg.RedisPasswordSecret); secret != "" {
			p, err := newSecretProviderSM(i.SecretManager, i.ProjectID).Secret(ctx, secret)
			if err != nil {
				return fmt.Errorf("shared.infra: redis password: %w", err)
			}
			password = p
		}
		client, err := redisinfra.NewClient(ctx, cfg.RedisURL, password, i.Logger)
		if err != nil {
			return fmt.Errorf("shared.infra: %w", err)
		}
		i.Redis = client
		i.DocumentStore = redisout.NewDocumentStoreRedis(client)

	case appcfg.BackendPostgres:
		db, err := database.NewConnection(ctx, cfg.DatabaseURL, i.Logger)
		if err != nil {
			return fmt.Errorf("shared.infra: %w", err)
		}
		i.DB = db
		store := dbout.NewDocumentStorePG(db.Client)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("shared.infra: ensure schema: %w", err)
		}
		i.DocumentStore = store

	case appcfg.BackendMemory:
		log.Warn("in-memory document store; mirrored data is lost on restart")
		i.DocumentStore = memout.NewDocumentStoreMem()

	default:
		return fmt.Errorf("shared.infra: unknown document store %q", cfg.DocumentStore)
	}

	log.Info("document store ready")
	return nil
}

// Ping checks the selected backend.
func (i *Infra) Ping(ctx context.Context) error {
	if i == nil {
		return errors.New("shared.infra: nil")
	}
	switch {
	case i.Firestore != nil:
		return i.Firestore.Ping(ctx)
	case i.Redis != nil:
		return i.Redis.Ping(ctx).Err()
	case i.DB != nil:
		return i.DB.Ping(ctx)
	default:
		return nil
	}
}

func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.Firestore != nil {
		errs = append(errs, i.Firestore.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.SecretManager != nil {
		errs = append(errs, i.SecretManager.Close())
	}
	return errors.Join(errs...)
}

func redactPath(p string) string {
	// Do not log full path (Windows/Unix compatible light masking)
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	// Keep only the last segment
	p = strings.ReplaceAll(p, "\\", "/")
	parts := strings.Split(p, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return "***"
	}
	return "***" + "/" + last
}
