package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"ecomdash/internal/config"
	"ecomdash/internal/dashboard"
	"ecomdash/internal/logger"
	"ecomdash/internal/models"
	"ecomdash/internal/report"
	"ecomdash/internal/resource"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config.yml (defaults only when empty)")
	start := flag.String("start", "", "first day YYYY-MM-DD (default: first approved order)")
	end := flag.String("end", "", "last day YYYY-MM-DD (default: last approved order)")
	out := flag.String("out", "", "output file (default: stdout)")
	title := flag.String("title", "Brazil E-Commerce Public Data Analysis", "report title")
	flag.Parse()

	if err := run(*configPath, *start, *end, *out, *title); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, start, end, out, title string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.New()
	if err := log.Configure("warn", "text", "stderr", 0); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var s3 resource.Provider
	if cfg.Storage.S3.Region != "" {
		if p, err := resource.NewS3Provider(ctx, resource.S3Options{
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			PathStyle:       cfg.Storage.S3.PathStyle,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		}); err == nil {
			s3 = p
		}
	}

	bar := progressbar.Default(3, "loading dataset")
	ds, err := dashboard.LoadDataset(ctx, cfg, resource.NewRouter(cfg.Dataset.FetchTimeout, s3), log, nil, func(step string) {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}
	svc := dashboard.NewService(ds, cfg.Map.Style(), log, nil)

	def, _ := svc.DefaultRange()
	r, err := dashboard.ParseRange(start, end, def)
	if err != nil {
		return err
	}
	data, err := svc.Build(ctx, r)
	if err != nil {
		return err
	}

	return writeReport(out, title, data)
}

// writeReport writes to out, or stdout when out is empty. The file is closed
// before returning so a failed flush is reported.
func writeReport(out, title string, data *models.DashboardData) error {
	if out == "" {
		return report.Write(os.Stdout, title, data)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := report.Write(f, title, data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	return nil
}
