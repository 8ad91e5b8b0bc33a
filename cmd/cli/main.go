package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"goedm/adapters/api"
	"goedm/adapters/excel"
	"goedm/adapters/stats/engine"
	"goedm/domain/edm"
	"goedm/internal"
	"goedm/internal/config"
)

// globals shared by every subcommand
type options struct {
	file    string
	sheet   string
	comma   string
	workers int
	asJSON  bool
}

// embeddingFlags are only forwarded when set so the configured defaults
// of each operation apply otherwise
type embeddingFlags struct {
	E, tau, tp int
}

func main() {
	_ = godotenv.Load()

	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "edm",
		Short: "Empirical dynamic modeling on CSV and Excel time series",
		Long: `Run simplex projection, S-Map, embedding dimension selection and
cross mapping over the numeric columns of a CSV or Excel file.

Defaults for E, tau, Tp and theta come from EDM_* environment variables
(or the YAML file named by EDM_CONFIG_FILE) and can be overridden per call.

Example: edm edim -f series.csv --column x --e-max 10`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "CSV or XLSX file holding the series")
	rootCmd.PersistentFlags().StringVar(&opts.sheet, "sheet", "", "Excel sheet (default: first sheet)")
	rootCmd.PersistentFlags().StringVar(&opts.comma, "comma", ",", "CSV field separator")
	rootCmd.PersistentFlags().IntVar(&opts.workers, "workers", -1, "Worker count (default: EDM_WORKERS or GOMAXPROCS)")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print the full JSON envelope including the run manifest")

	rootCmd.AddCommand(
		newEdimCmd(opts),
		newPredictCmd(opts, "simplex", "Predict with simplex projection", false),
		newPredictCmd(opts, "eval-simplex", "Score simplex projection on the observed future", false),
		newPredictCmd(opts, "smap", "Predict with S-Map", true),
		newPredictCmd(opts, "eval-smap", "Score S-Map on the observed future", true),
		newXMapCmd(opts),
		newCCMCmd(opts),
		newConfigCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the engine behind a service
func (o *options) setup() (*api.Service, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if o.workers >= 0 {
		cfg.Engine.Workers = o.workers
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	e := engine.New(
		engine.WithWorkers(cfg.Engine.ResolvedWorkers()),
		engine.WithLogger(logger),
	)
	return api.NewService(e, cfg.Engine), cfg, nil
}

func (o *options) read(columns ...string) (*excel.Table, error) {
	if o.file == "" {
		return nil, fmt.Errorf("--file is required")
	}
	rc := excel.DefaultReaderConfig()
	if o.sheet != "" {
		rc.Sheet = o.sheet
	}
	if o.comma != "" {
		rc.Comma = []rune(o.comma)[0]
	}
	return excel.NewDataReaderWithConfig(o.file, rc).ReadDataset(columns...)
}

func (f *embeddingFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.E, "E", "E", 0, "Embedding dimension")
	cmd.Flags().IntVar(&f.tau, "tau", 0, "Embedding lag")
	cmd.Flags().IntVar(&f.tp, "Tp", 0, "Prediction horizon")
}

func (f *embeddingFlags) embedding(cmd *cobra.Command) api.Embedding {
	var emb api.Embedding
	if cmd.Flags().Changed("E") {
		emb.E = &f.E
	}
	if cmd.Flags().Changed("tau") {
		emb.Tau = &f.tau
	}
	if cmd.Flags().Changed("Tp") {
		emb.Tp = &f.tp
	}
	return emb
}

func newEdimCmd(opts *options) *cobra.Command {
	var (
		column string
		eMax   int
		emb    embeddingFlags
	)

	cmd := &cobra.Command{
		Use:   "edim",
		Short: "Select the embedding dimension of one series",
		Long: `Score simplex projection for E = 1..E_max and report the dimension with
the highest skill.

Example: edm edim -f series.csv --column x --e-max 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := opts.setup()
			if err != nil {
				return err
			}
			table, err := opts.read(column)
			if err != nil {
				return err
			}

			req := api.EdimRequest{
				Data:      api.Array{Rank: 1, Vector: table.Data.Column(0)},
				Embedding: emb.embedding(cmd),
			}
			if cmd.Flags().Changed("e-max") {
				req.EMax = &eMax
			}
			resp, err := svc.Edim(req)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(resp)
			}

			res := resp.Result.(engine.EdimResult)
			fmt.Printf("Optimal E for %s: %d\n", column, res.E)
			for i, r := range res.Skills {
				marker := " "
				if i+1 == res.E {
					marker = "*"
				}
				fmt.Printf("%s E=%-3d rho=%.4f\n", marker, i+1, r)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Series column")
	cmd.Flags().IntVar(&eMax, "e-max", 0, "Largest embedding dimension to try")
	emb.register(cmd)
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newPredictCmd(opts *options, use, short string, withTheta bool) *cobra.Command {
	var (
		library []string
		target  []string
		out     string
		theta   float64
		emb     embeddingFlags
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: fmt.Sprintf(`%s.

With several --library columns the embedding concatenates the lagged
coordinates of every column (simplex only). --target defaults to the library,
in which case each point's own neighbor is excluded.

Example: edm %s -f series.csv --library x --E 3 --Tp 1`, short, use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := opts.setup()
			if err != nil {
				return err
			}

			lib, err := opts.read(library...)
			if err != nil {
				return err
			}
			req := api.PredictRequest{
				Library:   arrayOf(lib.Data),
				Embedding: emb.embedding(cmd),
			}
			tgtTable := lib
			if len(target) > 0 {
				if tgtTable, err = opts.read(target...); err != nil {
					return err
				}
				t := arrayOf(tgtTable.Data)
				req.Target = &t
			}
			if withTheta && cmd.Flags().Changed("theta") {
				req.Theta = &theta
			}

			var resp *api.Response
			switch use {
			case "simplex":
				resp, err = svc.Simplex(req)
			case "eval-simplex":
				resp, err = svc.EvalSimplex(req)
			case "smap":
				resp, err = svc.SMap(req)
			case "eval-smap":
				resp, err = svc.EvalSMap(req)
			}
			if err != nil {
				return err
			}

			switch res := resp.Result.(type) {
			case api.SkillResult:
				if opts.asJSON {
					return printJSON(resp)
				}
				fmt.Printf("rho=%.4f (run %s)\n", res.Rho, resp.RunID)
				return nil
			case api.PredictionResult:
				if out != "" {
					if err := writePrediction(out, tgtTable, res.Prediction); err != nil {
						return err
					}
				}
				if opts.asJSON {
					return printJSON(resp)
				}
				fmt.Printf("%d predictions (run %s)\n", predictionRows(res.Prediction), resp.RunID)
				if out != "" {
					fmt.Printf("written to %s\n", out)
				}
				return nil
			}
			return printJSON(resp)
		},
	}

	cmd.Flags().StringSliceVar(&library, "library", nil, "Library column(s)")
	cmd.Flags().StringSliceVar(&target, "target", nil, "Target column(s) (default: library)")
	if strings.HasPrefix(use, "simplex") || strings.HasPrefix(use, "smap") {
		cmd.Flags().StringVarP(&out, "out", "o", "", "Write predictions to a .csv or .xlsx file")
	}
	if withTheta {
		cmd.Flags().Float64Var(&theta, "theta", 0, "S-Map locality")
	}
	emb.register(cmd)
	_ = cmd.MarkFlagRequired("library")
	return cmd
}

func newXMapCmd(opts *options) *cobra.Command {
	var (
		columns []string
		edims   []int
		emb     embeddingFlags
	)

	cmd := &cobra.Command{
		Use:   "xmap",
		Short: "Cross map every pair of columns",
		Long: `Build the cross-map skill matrix: cell (i, j) is the skill of the
E_j-dimensional reconstruction from column i at predicting column j.
When --edims is omitted each column's dimension is chosen with edim.

Example: edm xmap -f series.csv --columns x,y,z --edims 2,3,2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := opts.setup()
			if err != nil {
				return err
			}
			table, err := opts.read(columns...)
			if err != nil {
				return err
			}

			if len(edims) == 0 {
				// Tp of the sweep stays at its edim default
				sweep := api.Embedding{Tau: emb.embedding(cmd).Tau}
				edims = make([]int, table.Data.Cols())
				for j := range edims {
					resp, err := svc.Edim(api.EdimRequest{
						Data:      api.Array{Rank: 1, Vector: table.Data.Column(j)},
						Embedding: sweep,
					})
					if err != nil {
						return fmt.Errorf("edim %s: %w", table.Headers[j], err)
					}
					edims[j] = resp.Result.(engine.EdimResult).E
				}
				fmt.Fprintf(os.Stderr, "edims (E_max=%d): %v\n", cfg.Engine.EMax, edims)
			}

			resp, err := svc.XMap(api.XMapRequest{
				Data:      arrayOf(table.Data),
				Edims:     edims,
				Embedding: emb.embedding(cmd),
			})
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(resp)
			}

			res := resp.Result.(api.XMapResult)
			fmt.Printf("%-12s", "library\\target")
			for _, h := range table.Headers {
				fmt.Printf(" %10s", h)
			}
			fmt.Println()
			for i, row := range res.Matrix {
				fmt.Printf("%-14s", table.Headers[i])
				for _, v := range row {
					fmt.Printf(" %10.4f", v)
				}
				fmt.Println()
			}
			if res.Summary.Pairs > 0 {
				fmt.Printf("\nstrongest: %s -> %s (rho=%.4f), mean=%.4f median=%.4f\n",
					table.Headers[res.Summary.StrongestLibrary], table.Headers[res.Summary.StrongestTarget],
					res.Summary.Max, res.Summary.Mean, res.Summary.Median)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to cross map (default: all)")
	cmd.Flags().IntSliceVar(&edims, "edims", nil, "Embedding dimension per column")
	emb.register(cmd)
	return cmd
}

func newCCMCmd(opts *options) *cobra.Command {
	var (
		library string
		target  string
		sizes   []int
		emb     embeddingFlags
	)

	cmd := &cobra.Command{
		Use:   "ccm",
		Short: "Convergent cross mapping between two series",
		Long: `Cross map --target from the shadow manifold of --library over growing
library sizes. A skill that rises and levels off indicates that the target
drives the library series.

Example: edm ccm -f series.csv --library y --target x --E 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := opts.setup()
			if err != nil {
				return err
			}
			table, err := opts.read(library, target)
			if err != nil {
				return err
			}

			resp, err := svc.Convergence(api.ConvergenceRequest{
				Library:      api.Array{Rank: 1, Vector: table.Data.Column(0)},
				Target:       api.Array{Rank: 1, Vector: table.Data.Column(1)},
				LibrarySizes: sizes,
				Embedding:    emb.embedding(cmd),
			})
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(resp)
			}

			res := resp.Result.(engine.ConvergenceResult)
			fmt.Printf("%s xmap %s\n", library, target)
			for _, p := range res.Points {
				fmt.Printf("  L=%-6d rho=%.4f\n", p.LibrarySize, p.Skill)
			}
			fmt.Printf("converged=%v strength=%.4f\n", res.Converged, res.Strength)
			return nil
		},
	}

	cmd.Flags().StringVar(&library, "library", "", "Library (effect) column")
	cmd.Flags().StringVar(&target, "target", "", "Target (cause) column")
	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "Library sizes (default: evenly spaced)")
	emb.register(cmd)
	_ = cmd.MarkFlagRequired("library")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the runtime and default arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := opts.setup()
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(svc.Config())
			}
			res := svc.Config()
			fmt.Println(res.Runtime.String())
			fmt.Printf("defaults: E_max=%d E=%d tau=%d Tp=%d xmap_Tp=%d smap_E=%d theta=%g\n",
				cfg.Engine.EMax, cfg.Engine.E, cfg.Engine.Tau, cfg.Engine.Tp,
				cfg.Engine.XMapTp, cfg.Engine.SMapE, cfg.Engine.Theta)
			return nil
		},
	}
}

func arrayOf(ds *edm.Dataset) api.Array {
	if ds.Cols() == 1 {
		return api.Array{Rank: 1, Vector: ds.Column(0)}
	}
	return api.Array{Rank: 2, Matrix: ds.Records()}
}

func predictionRows(a api.Array) int {
	if a.Rank == 2 {
		return len(a.Matrix)
	}
	return len(a.Vector)
}

// writePrediction saves one prediction column per target column
func writePrediction(path string, target *excel.Table, pred api.Array) error {
	if pred.Rank == 1 {
		return excel.WriteColumns(path, []string{target.Headers[0] + "_pred"}, pred.Vector)
	}

	headers := make([]string, len(target.Headers))
	columns := make([]edm.Sequence, len(target.Headers))
	for j, h := range target.Headers {
		headers[j] = h + "_pred"
		columns[j] = make(edm.Sequence, len(pred.Matrix))
		for i, row := range pred.Matrix {
			columns[j][i] = row[j]
		}
	}
	return excel.WriteColumns(path, headers, columns...)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
