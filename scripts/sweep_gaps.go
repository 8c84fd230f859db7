//go:build ignore

// Calibration sweep: how the adaptive saving scales with the gap
// between the best arm and the field.
// Run with: go run scripts/sweep_gaps.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AleutianAI/bestarm/pkg/study"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	gaps := []float64{0.30, 0.20, 0.10, 0.05, 0.02}

	fmt.Println("gap     adaptive    uniform    saving   verdict")
	fmt.Println("-----------------------------------------------")

	for _, gap := range gaps {
		rates := []float64{0.5 + gap, 0.5, 0.45, 0.40}

		cfg := study.DefaultConfig(rates)
		cfg.Replications = 100
		cfg.BaseSeed = 7

		c, err := study.CompareModes(ctx, cfg)
		if err != nil {
			log.Fatalf("compare at gap %.2f: %v", gap, err)
		}

		saving := 1 - c.Adaptive.Pulls.Mean/c.Uniform.Pulls.Mean
		fmt.Printf("%.2f  %9.1f  %9.1f   %5.1f%%   %s\n",
			gap, c.Adaptive.Pulls.Mean, c.Uniform.Pulls.Mean,
			saving*100, c.Recommendation)
	}
}
