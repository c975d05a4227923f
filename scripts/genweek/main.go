// genweek generates one weekly package for the configured profile and
// prints it as JSON. Useful for eyeballing synthesis output without
// running the daemon.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/blaisecz/vitalsim/internal/config"
	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/planner"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	req := &domain.CreateProfileRequest{
		Age:      cfg.ProfileAge,
		Sex:      domain.Sex(cfg.ProfileSex),
		HeightCM: cfg.ProfileHeightCM,
		WeightKG: cfg.ProfileWeightKG,
	}
	profile, err := domain.NewProfile(req)
	if err != nil {
		log.Fatalf("Failed to build profile: %v", err)
	}

	mode := domain.FidelityMode(cfg.Mode)
	if mode != domain.ModePlain && mode != domain.ModeDetailed {
		log.Fatalf("Invalid fidelity mode %q", cfg.Mode)
	}

	now := time.Now().UTC()
	pkg, err := planner.New(zap.NewNop()).BuildWeek(context.Background(), profile, domain.WeekStartFor(now), now, mode)
	if err != nil {
		log.Fatalf("Failed to build week: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkg); err != nil {
		log.Fatalf("Failed to encode package: %v", err)
	}
}
