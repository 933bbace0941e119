package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/querysprout/fanout-analyzer/internal/config"
	"github.com/querysprout/fanout-analyzer/internal/controllers"
	"github.com/querysprout/fanout-analyzer/internal/middleware"
	"github.com/querysprout/fanout-analyzer/internal/models"
	"github.com/querysprout/fanout-analyzer/internal/services"
	"github.com/querysprout/fanout-analyzer/internal/views"
	"github.com/querysprout/fanout-analyzer/templates"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if err := run(cfg, log); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	// Setup Services ---------------
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.LLM.RequestsPerMinute)/60.0), cfg.LLM.MaxConcurrent)
	opts := services.LLMOptions{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		FastModel:    cfg.LLM.FastModel,
		CapableModel: cfg.LLM.CapableModel,
		Timeout:      cfg.LLM.Timeout,
		Limiter:      limiter,
	}

	var llm services.LLMClient
	switch cfg.LLM.Provider {
	case "gemini":
		llm = services.NewGeminiClient(opts)
	case "openai":
		llm = services.NewOpenAIClient(opts)
	case "anthropic":
		llm = services.NewAnthropicClient(opts)
	default:
		return fmt.Errorf("unknown provider: %s", cfg.LLM.Provider)
	}
	log.WithFields(logrus.Fields{
		"provider": llm.Provider(),
		"fast":     llm.ModelFor(models.TierFast),
		"capable":  llm.ModelFor(models.TierCapable),
	}).Info("model provider configured")

	fetcher := services.NewContentFetcher(cfg.Fetcher.Timeout)
	runner := services.NewAnalysisRunner(llm, fetcher, log)
	runner.Workers = cfg.LLM.MaxConcurrent
	assembler := services.NewReportAssembler()

	sessionService := models.NewSessionService()
	sessionService.HistoryLimit = cfg.Limits.HistoryLimit

	// Setup Templates ---------------
	views.TemplateFS = templates.FS
	homeTpl := views.MustParseFS("pages/home.gohtml")
	analyzeTpl := views.MustParseFS("pages/analyze.gohtml")
	resultTpl := views.MustParseFS("pages/result.gohtml")

	// Setup Controllers ---------------
	staticCtrl := controllers.NewStaticController(controllers.StaticTemplates{
		Home: homeTpl,
	})
	analyzeCtrl := controllers.NewAnalyzeController(
		runner,
		assembler,
		sessionService,
		cfg.Defaults,
		cfg.Limits.MaxQueries,
		log,
		controllers.AnalyzeTemplates{
			Form:   analyzeTpl,
			Result: resultTpl,
		},
	)

	// Middleware ---------------
	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
	)
	smw := middleware.NewSessionMiddleware(sessionService, cfg.Security.SessionCookieName, cfg.Security.SecureCookies)

	// Setup router and routes ---------------
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	r.Use(csrfMw)
	r.Use(smw.SetSession)

	r.Get("/", staticCtrl.GetHome)
	r.Get("/healthz", controllers.HealthCheck)

	r.Get("/analyze", analyzeCtrl.GetAnalyzeForm)
	r.Post("/analyze", analyzeCtrl.PostAnalyze)
	r.Get("/analysis/{id}", analyzeCtrl.GetResult)
	r.Get("/analysis/{id}/export/{format}", analyzeCtrl.GetExport)

	// Start the Server ---------------
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	log.WithField("address", cfg.Server.Address).Info("starting server")
	return srv.ListenAndServe()
}
