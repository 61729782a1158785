package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"medassist/internal/ai"
	appsvc "medassist/internal/app"
	"medassist/internal/cache"
	"medassist/internal/config"
	"medassist/internal/connectivity"
	"medassist/internal/language"
	"medassist/internal/model"
	"medassist/internal/ocr"
	"medassist/internal/platform/mysql"
	"medassist/internal/platform/rabbitmq"
	"medassist/internal/platform/redis"
	"medassist/internal/repository"
	"medassist/internal/retrieval"
	"medassist/internal/speech"
	"medassist/internal/vision"
	"medassist/internal/worker"
)

// App holds every wired collaborator for the process lifetime. Optional
// infrastructure (mysql, redis, rabbitmq, vision) stays nil when disabled and
// every consumer tolerates that.
type App struct {
	Config    *config.Config
	StartedAt time.Time

	MySQL  *gorm.DB
	Redis  *redisv9.Client
	MQConn *amqp.Connection

	Prober     *connectivity.Prober
	Sessions   *appsvc.SessionService
	Answers    *appsvc.AnswerService
	Translator *language.Translator
	Speaker    speech.Dispatcher
	Converter  *speech.Converter
	CloudSTT   speech.Transcriber
	LocalSTT   speech.Transcriber
	CloudTTS   speech.Synthesizer
	LocalTTS   speech.Synthesizer
	CloudOCR   ocr.TextExtractor
	LocalOCR   ocr.TextExtractor

	speechWorker *worker.SpeechPlaybackWorker
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:    cfg,
		StartedAt: time.Now(),
	}

	a.Prober = connectivity.NewProber(
		cfg.Probe.Host,
		cfg.Probe.Port,
		time.Duration(cfg.Probe.TimeoutSeconds)*time.Second,
	)

	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("init redis failed: %w", err)
		}
		a.Redis = client
	}

	store, err := a.buildSessionStore(ctx)
	if err != nil {
		return nil, err
	}

	var historyCache appsvc.HistoryCache
	if a.Redis != nil {
		historyCache = cache.NewHistoryCache(
			a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}
	a.Sessions = appsvc.NewSessionService(store, historyCache)

	chatClient := ai.NewOpenAICompatibleClient()
	cloudModel := &cloudModel{
		client: chatClient,
		cfg: ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		},
	}
	localModel := ai.NewLocalLLMClient(cfg.LocalLLM.BaseURL, cfg.LocalLLM.MaxTokens)

	embedder := retrieval.NewEmbedderFromClient(chatClient, ai.EmbeddingConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	})
	retriever := retrieval.NewPineconeClient(
		cfg.Retrieval.IndexHost,
		cfg.Retrieval.APIKey,
		cfg.Retrieval.Namespace,
		embedder,
	)

	a.Answers = appsvc.NewAnswerService(
		a.Prober,
		retriever,
		cloudModel,
		localModel,
		a.Sessions,
		cfg.Retrieval.TopK,
	)

	a.Translator = language.NewTranslator(chatClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})

	a.buildSpeech(ctx)
	a.buildOCR()

	return a, nil
}

func (a *App) buildSessionStore(ctx context.Context) (repository.SessionStore, error) {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case "mysql":
		db, err := mysql.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("init mysql failed: %w", err)
		}
		a.MySQL = db
		store, err := repository.NewSQLSessionStore(db)
		if err != nil {
			return nil, fmt.Errorf("init sql session store failed: %w", err)
		}
		return store, nil
	case "", "file":
		store, err := repository.NewFileSessionStore(cfg.Storage.SessionDir)
		if err != nil {
			return nil, fmt.Errorf("init file session store failed: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) buildSpeech(ctx context.Context) {
	cfg := a.Config

	a.Converter = speech.NewConverter(cfg.Speech.FFmpegBin)
	player := speech.NewPlayer(cfg.Speech.PlayerBin)

	if cfg.Speech.CloudAPIKey != "" {
		cloudClient := speech.NewCloudSpeechClient(
			cfg.Speech.CloudBaseURL,
			cfg.Speech.CloudAPIKey,
			cfg.Speech.STTModel,
			cfg.Speech.TTSModel,
		)
		a.CloudSTT = cloudClient
		a.CloudTTS = cloudClient
	}
	a.LocalTTS = speech.NewLocalSynthesizer(cfg.Speech.PiperBin, cfg.Speech.PiperModel)
	a.LocalSTT = speech.NewLocalTranscriber(cfg.Speech.WhisperBin, cfg.Speech.WhisperModel)

	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmq.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, falling back to in-process playback")
		} else {
			a.MQConn = conn
			a.Speaker = &queueDispatcher{
				publisher: rabbitmq.NewSpeechPublisher(conn, cfg.RabbitMQ.SpeechQueue),
			}
			a.speechWorker = worker.NewSpeechPlaybackWorker(conn, a.CloudTTS, a.LocalTTS, player, cfg.RabbitMQ.SpeechQueue)
			if err := a.speechWorker.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("speech playback worker failed to start")
			}
			return
		}
	}
	a.Speaker = speech.NewDirectDispatcher(a.CloudTTS, a.LocalTTS, player)
}

func (a *App) buildOCR() {
	cfg := a.Config

	if cfg.LLM.APIKey != "" {
		a.CloudOCR = ocr.NewCloudVisionExtractor(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	}

	var labeler *vision.Labeler
	if cfg.Vision.Enabled {
		labeler = vision.NewLabeler(
			cfg.Vision.ModelPath,
			cfg.Vision.LabelsPath,
			cfg.Vision.ONNXSharedLibPath,
			cfg.Vision.TopK,
		)
	}
	a.LocalOCR = ocr.NewLocalExtractor(cfg.Speech.TesseractBin, labeler)
}

func (a *App) Close() {
	if a.speechWorker != nil {
		a.speechWorker.Close()
	}
	if a.MQConn != nil {
		_ = a.MQConn.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

type cloudModel struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.ChatConfig
}

func (m *cloudModel) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return m.client.Complete(ctx, m.cfg, []ai.ChatMessage{{Role: "user", Content: prompt}}, temperature)
}

type queueDispatcher struct {
	publisher *rabbitmq.SpeechPublisher
}

func (d *queueDispatcher) Dispatch(job model.SpeechJob) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.publisher.Publish(ctx, job); err != nil {
			log.Warn().Err(err).Msg("publish speech job failed")
		}
	}()
}
