package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"auto_blog_article_writer/generator"
	"auto_blog_article_writer/publisher"
	"auto_blog_article_writer/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config.yaml")
	briefPath := flag.String("brief", "", "path to a brief JSON file (one-shot mode)")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	// Secrets may live in a local .env; missing file is fine.
	_ = godotenv.Load()

	log, err := buildLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := publisher.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		log.Fatal("build llm client", zap.Error(err))
	}

	pipeline := generator.NewPipeline(llm, generator.Options{
		DraftConcurrency: cfg.Generation.DraftConcurrency,
		MaxAttempts:      cfg.Generation.MaxAttempts,
		MaxRounds:        cfg.Generation.MaxRounds,
		Deadline:         time.Duration(cfg.Generation.DeadlineSeconds) * time.Second,
		SkipMetadata:     cfg.Generation.SkipMetadata,
	}, log)

	if *serve {
		runServer(cfg, pipeline, *addr, log)
		return
	}

	if *briefPath == "" {
		fmt.Fprintln(os.Stderr, "either --serve or --brief is required")
		os.Exit(1)
	}
	runOnce(pipeline, *briefPath, log)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildLLM(cfg publisher.Config) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key in config")
	}
	switch cfg.LLM.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
	case "deepseek":
		// OpenAI-compatible endpoint; base_url is mandatory.
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func runServer(cfg publisher.Config, pipeline *generator.Pipeline, addrOverride string, log *zap.Logger) {
	var pub *publisher.Publisher
	if cfg.WordPress != nil {
		p, err := publisher.New(*cfg.WordPress, nil, log)
		if err != nil {
			log.Fatal("build publisher", zap.Error(err))
		}
		pub = p
	}

	srv, err := server.New(pipeline, pub, log)
	if err != nil {
		log.Fatal("build server", zap.Error(err))
	}

	listen := cfg.ServerAddr
	if addrOverride != "" {
		listen = addrOverride
	}
	if listen == "" {
		listen = ":8080"
	}
	log.Info("starting web server", zap.String("addr", listen))
	if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// runOnce generates a single article from a brief file and prints it as JSON.
func runOnce(pipeline *generator.Pipeline, briefPath string, log *zap.Logger) {
	data, err := os.ReadFile(briefPath)
	if err != nil {
		log.Fatal("read brief", zap.Error(err))
	}
	var brief generator.Brief
	if err := json.Unmarshal(data, &brief); err != nil {
		log.Fatal("parse brief", zap.Error(err))
	}

	article, err := pipeline.Generate(context.Background(), brief)
	if err != nil {
		log.Fatal("generation failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		log.Fatal("encode article", zap.Error(err))
	}
	fmt.Println(string(out))
}
