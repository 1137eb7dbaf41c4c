package admin

import (
	"context"
	"fmt"
	"log"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/jlcilliers/cvchat/internal/config"
	"github.com/jlcilliers/cvchat/internal/database"
	"github.com/jlcilliers/cvchat/internal/extract"
	"github.com/jlcilliers/cvchat/internal/openai"
	"github.com/jlcilliers/cvchat/internal/repository"
	"github.com/jlcilliers/cvchat/internal/service"
	"github.com/jlcilliers/cvchat/internal/storage"
)

// app holds the services shared by serve, ingest and query.
type app struct {
	cfg       *config.Config
	assistant *config.Assistant

	ingestion *service.IngestionService
	retriever service.Retriever
	uploads   *service.UploadService
	chat      *service.ChatService
	archive   *storage.DocumentArchive

	closers []func()
}

type appOptions struct {
	// migrate applies schema migrations when the postgres backend is used.
	migrate bool
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}

	assistant, err := config.LoadAssistant(cfg.AssistantConfig)
	if err != nil {
		return nil, err
	}
	a.assistant = assistant

	var objects *storage.S3Client
	if cfg.HasS3() {
		objects, err = storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		a.archive = storage.NewDocumentArchive(objects)
	}

	store, err := a.openStore(ctx, objects, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	index := service.NewIndexRepository(store)

	var embedder service.EmbeddingClient
	var answerer service.AnswerGenerator
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			ChatModel:           cfg.ChatModel,
			Temperature:         assistant.Temperature,
			MaxTokens:           assistant.MaxTokens,
		})
		answerer = client
		if cfg.SemanticMode {
			embedder = client
		}
	}

	mode := cfg.RetrievalMode()
	a.ingestion, err = service.NewIngestionService(index, embedder, service.IngestionConfig{
		Mode:             mode,
		Chunk:            service.DefaultChunkConfig(),
		EmbedTimeout:     cfg.EmbedTimeout,
		EmbedConcurrency: cfg.EmbedConcurrency,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.retriever, err = service.NewRetriever(mode, index, embedder, cfg.EmbedTimeout)
	if err != nil {
		a.Close()
		return nil, err
	}

	var archive service.DocumentArchive
	if a.archive != nil {
		archive = a.archive
	}
	a.uploads = service.NewUploadService(extract.NewPDFExtractor(), a.ingestion, archive)
	a.chat = service.NewChatService(a.retriever, answerer, assistant.ChatConfig())

	log.Printf("index backend %s, retrieval mode %s, answers %s", cfg.IndexBackend, mode, answerState(answerer))
	return a, nil
}

func (a *app) openStore(ctx context.Context, objects *storage.S3Client, opts appOptions) (service.IndexStore, error) {
	switch a.cfg.IndexBackend {
	case config.BackendRedis:
		client, err := repository.NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		return repository.NewRedisIndexStore(client, a.cfg.RedisKeyPrefix), nil

	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, a.cfg.DatabaseURL, database.PoolConfig{MaxConns: 8})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Println("connected to database")
		if opts.migrate {
			if err := database.Migrate(a.cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		return repository.NewPostgresIndexStore(pool), nil

	case config.BackendKVRest:
		return repository.NewKVRestIndexStore(a.cfg.KVRestURL, a.cfg.KVRestToken), nil

	case config.BackendS3:
		if objects == nil {
			return nil, fmt.Errorf("INDEX_BACKEND=s3 requires S3 settings")
		}
		return repository.NewObjectIndexStore(objects), nil

	default:
		return repository.NewMemoryIndexStore(), nil
	}
}

// Close releases backend connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func answerState(answerer service.AnswerGenerator) string {
	if answerer == nil {
		return "not configured"
	}
	return "enabled"
}
