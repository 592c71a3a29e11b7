package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/phishschool/backend/internal/adapters/httpapi"
	"github.com/phishschool/backend/internal/config"
	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/factory"
	"github.com/phishschool/backend/internal/logging"
	"github.com/phishschool/backend/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSenderFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register email sender
	if err := container.Provide(func(f *factory.SenderFactory) (core.EmailSender, error) {
		return f.CreateSender()
	}); err != nil {
		return nil, err
	}

	// Register campaign store
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register core services
	if err := container.Provide(func(llm core.LLMClient, cfg *config.Config, logger *zap.Logger) *core.Generator {
		return core.NewGenerator(llm, logger, cfg.GetGeneration().MaxAttempts)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewScorer); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewCampaigns); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) *core.Renderer {
		return core.NewRenderer(cfg.GetServer().PublicURL, cfg.GetFrontend().TrainingPage)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(store core.Store, generator *core.Generator, sender core.EmailSender,
		renderer *core.Renderer, logger *zap.Logger, f *factory.SenderFactory) *core.Dispatcher {
		return core.NewDispatcher(store, generator, sender, renderer, logger, f.FromEmail())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(store core.Store, cfg *config.Config, logger *zap.Logger) *core.Tracker {
		return core.NewTracker(store, logger, cfg.GetFrontend().BaseURL)
	}); err != nil {
		return nil, err
	}

	// Register HTTP surface
	if err := container.Provide(func(
		generator *core.Generator,
		scorer *core.Scorer,
		campaigns *core.Campaigns,
		dispatcher *core.Dispatcher,
		tracker *core.Tracker,
		store core.Store,
		textProc *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) *httpapi.Handlers {
		return httpapi.NewHandlers(generator, scorer, campaigns, dispatcher, tracker,
			store, textProc, cfg.GetScoring().MaxBodyChars, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(handlers *httpapi.Handlers, cfg *config.Config, logger *zap.Logger) *httpapi.Server {
		return httpapi.NewServer(cfg.GetServer().ListenAddress, handlers, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
