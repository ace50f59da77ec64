// The estimate binary runs one load calculation from the command line:
//
//	estimate -pdf plan.pdf -zip 63101 -duct vented_attic -fuel gas
//
// Exit codes: 0 success, 2 needs-input, 3 source unreadable, 4 timed out,
// 5 internal error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/estimate"
	"heatload_backend/internal/estimate/transport"
	"heatload_backend/internal/vision"
	"heatload_backend/platform/apperr"
	"heatload_backend/platform/config"
	"heatload_backend/platform/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	pdfPath := flag.String("pdf", "", "path to the blueprint PDF")
	zip := flag.String("zip", "", "5-digit ZIP code")
	duct := flag.String("duct", "", "duct config: conditioned|basement|crawl|vented_attic|ductless")
	fuel := flag.String("fuel", "gas", "heating fuel: gas|electric|heat_pump")
	era := flag.String("era", "", "construction era (1960s..2020s or new)")
	foundation := flag.String("foundation", "", "foundation type override")
	flag.Parse()

	if *pdfPath == "" || *zip == "" || *duct == "" {
		fmt.Fprintln(os.Stderr, "usage: estimate -pdf plan.pdf -zip 63101 -duct vented_attic [-fuel gas] [-era 1990s]")
		return apperr.ExitInternal
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return apperr.ExitInternal
	}
	log := logger.New(cfg.Env)

	pdf, err := os.ReadFile(*pdfPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading blueprint:", err)
		return apperr.ExitSourceUnreadable
	}

	ctx := context.Background()

	var analyzer *vision.Analyzer
	if cfg.IsVisionEnabled() {
		providers, err := vision.NewGeminiProviders(ctx, cfg.GetGeminiAPIKey(), cfg.GetVisionModels())
		if err != nil {
			fmt.Fprintln(os.Stderr, "vision init:", err)
			return apperr.ExitInternal
		}
		analyzer = vision.NewAnalyzer(providers,
			cfg.GetVisionTimeout(), cfg.GetVisionTotalBudget(), cfg.GetVisionConcurrency(), log)
	}

	adapter := blueprint.NewAdapter(blueprint.NewHTTPRenderer(cfg.GetRendererURL()))
	service := estimate.NewService(adapter, analyzer, cfg, log)

	outcome, err := service.Run(ctx, estimate.Request{
		PDF: pdf,
		Zip: *zip,
		Assumptions: transport.Assumptions{
			DuctConfig:      *duct,
			HeatingFuel:     *fuel,
			ConstructionEra: *era,
			FoundationType:  *foundation,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "estimate failed:", err)
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr.ExitCode()
		}
		return apperr.ExitInternal
	}

	if outcome.NeedsInput != nil {
		fmt.Fprintf(os.Stderr, "needs input (%s): %s\n", outcome.NeedsInput.Kind, outcome.NeedsInput.Details)
		if outcome.NeedsInput.Recommendation != "" {
			fmt.Fprintln(os.Stderr, outcome.NeedsInput.Recommendation)
		}
		return apperr.ExitNeedsInput
	}

	data, err := outcome.Report.JSON()
	if err != nil {
		fmt.Fprintln(os.Stderr, "serializing report:", err)
		return apperr.ExitInternal
	}
	fmt.Println(string(data))

	if outcome.Result.Partial {
		return apperr.ExitTimedOut
	}
	return apperr.ExitOK
}
