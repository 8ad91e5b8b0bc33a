package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/spf13/cobra"

	"goedm/adapters/api"
	"goedm/adapters/excel"
	"goedm/adapters/stats/engine"
	"goedm/domain/edm"
	"goedm/domain/run"
	"goedm/internal"
	"goedm/internal/config"
	"goedm/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "edm-dev",
		Short: "EDM development tools",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
		newDeterminismTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	cfg := testkit.DefaultSeriesConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic series to a .csv or .xlsx file",
		Long: `Write sine, coupled logistic (x drives y) and white noise columns.

Example: edm-dev seed --out series.csv --length 1000 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateSeedData(cfg, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "series.csv", "Output file")
	cmd.Flags().IntVar(&cfg.Length, "length", cfg.Length, "Samples per series")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for the noise column")
	return cmd
}

func newSmokeTestCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run every operation on synthetic data and check the skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker count (0: GOMAXPROCS)")
	return cmd
}

func newDeterminismTestCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "determinism",
		Short: "Check that results and fingerprints do not depend on worker count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return testDeterminism(workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 8, "Worker count compared against a single worker")
	return cmd
}

func generateSeedData(cfg testkit.SeriesGeneratorConfig, out string) error {
	fmt.Println("Generating seed data...")

	ds, err := testkit.NewSeriesGenerator(cfg).Dataset()
	if err != nil {
		return fmt.Errorf("failed to generate series: %w", err)
	}
	if err := excel.WriteColumns(out, testkit.Headers, ds.Columns()...); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("Wrote %d series x %d rows to %s\n", ds.Cols(), ds.Rows(), out)
	return nil
}

func newService(workers int) *api.Service {
	defaults := config.Default().Engine
	e := engine.New(
		engine.WithWorkers(workers),
		engine.WithLogger(internal.NewLogger(internal.LogLevelWarn)),
	)
	return api.NewService(e, defaults)
}

func intPtr(v int) *int { return &v }

func runSmokeTests(workers int) error {
	fmt.Println("Running smoke tests...")

	gen := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig())
	sine := gen.Sine()
	x, y := gen.CoupledLogistic()
	noise := gen.WhiteNoise()
	svc := newService(workers)

	skill := func(resp *api.Response, err error) (float32, error) {
		if err != nil {
			return 0, err
		}
		return resp.Result.(api.SkillResult).Rho, nil
	}
	atLeast := func(name string, got, want float32) error {
		if got < want {
			return fmt.Errorf("%s skill %.4f below %.2f", name, got, want)
		}
		return nil
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"edim_sine", func() error {
			resp, err := svc.Edim(api.EdimRequest{Data: api.Array{Rank: 1, Vector: sine}, EMax: intPtr(6)})
			if err != nil {
				return err
			}
			for i, r := range resp.Result.(engine.EdimResult).Skills {
				if err := atLeast(fmt.Sprintf("E=%d", i+1), r, 0.9); err != nil {
					return err
				}
			}
			return nil
		}},
		{"eval_simplex_sine", func() error {
			r, err := skill(svc.EvalSimplex(api.PredictRequest{
				Library:   api.Array{Rank: 1, Vector: sine},
				Embedding: api.Embedding{E: intPtr(2)},
			}))
			if err != nil {
				return err
			}
			return atLeast("simplex", r, 0.99)
		}},
		{"eval_smap_sine", func() error {
			r, err := skill(svc.EvalSMap(api.PredictRequest{Library: api.Array{Rank: 1, Vector: sine}}))
			if err != nil {
				return err
			}
			return atLeast("smap", r, 0.99)
		}},
		{"xmap_logistic", func() error {
			ds, err := edm.DatasetFromColumns(x, y, noise)
			if err != nil {
				return err
			}
			resp, err := svc.XMap(api.XMapRequest{
				Data:  api.Array{Rank: 2, Matrix: ds.Records()},
				Edims: []int{2, 2, 2},
			})
			if err != nil {
				return err
			}
			m := resp.Result.(api.XMapResult).Matrix
			if err := atLeast("y xmap x", m[1][0], 0.5); err != nil {
				return err
			}
			if m[2][0] > 0.3 || m[2][0] < -0.3 {
				return fmt.Errorf("noise xmap x skill %.4f should be near zero", m[2][0])
			}
			return nil
		}},
		{"ccm_logistic", func() error {
			resp, err := svc.Convergence(api.ConvergenceRequest{
				Library:   api.Array{Rank: 1, Vector: y},
				Target:    api.Array{Rank: 1, Vector: x},
				Embedding: api.Embedding{E: intPtr(2)},
			})
			if err != nil {
				return err
			}
			res := resp.Result.(engine.ConvergenceResult)
			if !res.Converged {
				return fmt.Errorf("expected convergence, got %+v", res.Points)
			}
			return nil
		}},
	}

	passed := 0
	for _, test := range tests {
		fmt.Printf("  Running %s...", test.name)
		if err := test.fn(); err != nil {
			fmt.Printf(" FAILED: %v\n", err)
		} else {
			fmt.Println(" PASSED")
			passed++
		}
	}

	fmt.Printf("\nSmoke tests: %d/%d passed\n", passed, len(tests))
	if passed < len(tests) {
		return fmt.Errorf("some smoke tests failed")
	}
	return nil
}

func testDeterminism(workers int) error {
	fmt.Printf("Comparing 1 worker against %d workers...\n", workers)

	ds, err := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig()).Dataset()
	if err != nil {
		return err
	}
	req := api.XMapRequest{
		Data:  api.Array{Rank: 2, Matrix: ds.Records()},
		Edims: []int{2, 2, 2, 3},
	}

	serial, err := newService(1).XMap(req)
	if err != nil {
		return fmt.Errorf("serial run failed: %w", err)
	}
	parallel, err := newService(workers).XMap(req)
	if err != nil {
		return fmt.Errorf("parallel run failed: %w", err)
	}

	if err := compareRuns(serial, parallel); err != nil {
		return fmt.Errorf("determinism test failed: %w", err)
	}

	fmt.Printf("Determinism test passed - results identical (fingerprint %s)\n",
		serial.Manifest.Fingerprint.Fingerprint)
	return nil
}

func compareRuns(original, replay *api.Response) error {
	if !fingerprintsMatch(original.Manifest, replay.Manifest) {
		return fmt.Errorf("fingerprints differ")
	}
	if original.RunID == replay.RunID {
		return fmt.Errorf("run ids should be unique per run")
	}

	a := original.Result.(api.XMapResult).Matrix
	b := replay.Result.(api.XMapResult).Matrix
	if !reflect.DeepEqual(a, b) {
		return fmt.Errorf("cross map matrices differ:\n%v\n%v", a, b)
	}
	return nil
}

func fingerprintsMatch(a, b *run.Manifest) bool {
	return a.Fingerprint.Fingerprint.Equals(b.Fingerprint.Fingerprint)
}
