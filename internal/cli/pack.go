package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fpgapack/pkg/pctx"
	"github.com/matzehuels/fpgapack/pkg/pipeline"
)

// packFlags holds the command-line flags for the pack command, one per
// CLI flag spec §6 enumerates plus the (ADDED) flags of SPEC_FULL.md §6.
type packFlags struct {
	archPath      string
	netlistPath   string
	placementPath string
	configPath    string
	verifyDigests bool
	refresh       bool
	noCache       bool
	jsonStats     bool
	tui           bool

	seed                       int64
	clusterSeed                string
	alpha                      float64
	beta                       float64
	allowUnrelatedClustering   bool
	connectionDrivenClustering bool
	timingDrivenClustering     bool
	interClusterNetDelay       float64
	timingPath                 string
}

// fileConfig is the shape of a --config TOML file: the eight tuning
// flags (seed through inter_cluster_net_delay), expressed as layered defaults that explicit CLI flags override
// (spec §6 ADDED "--config <file>").
type fileConfig struct {
	Seed                       *int64   `toml:"seed"`
	ClusterSeed                *string  `toml:"cluster_seed"`
	Alpha                      *float64 `toml:"alpha"`
	Beta                       *float64 `toml:"beta"`
	AllowUnrelatedClustering   *bool    `toml:"allow_unrelated_clustering"`
	ConnectionDrivenClustering *bool    `toml:"connection_driven_clustering"`
	TimingDrivenClustering     *bool    `toml:"timing_driven_clustering"`
	InterClusterNetDelay       *float64 `toml:"inter_cluster_net_delay"`
}

func (c *CLI) packCommand() *cobra.Command {
	flags := packFlags{}
	def := pctx.DefaultConfig()
	flags.seed = def.Seed
	flags.clusterSeed = string(def.ClusterSeed)
	flags.alpha = def.Alpha
	flags.beta = def.Beta
	flags.allowUnrelatedClustering = def.AllowUnrelatedClustering
	flags.connectionDrivenClustering = def.ConnectionDrivenClustering
	flags.timingDrivenClustering = def.TimingDrivenClustering
	flags.interClusterNetDelay = def.InterClusterNetDelay
	flags.verifyDigests = true

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Cluster a netlist into architecture-sized logic blocks",
		Long: `Pack runs one clustering invocation: it reads a netlist and an
architecture, groups atoms into clusters subject to capacity, timing and
pin-usage constraints, and reports the resulting cluster set.`,
		Example: `  fpgapack pack --arch fpga.json --netlist design.json
  fpgapack pack --arch fpga.json --netlist design.json --json-stats
  fpgapack pack --arch fpga.json --netlist design.json --config tuning.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPack(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.archPath, "arch", "", "architecture file (required)")
	cmd.Flags().StringVar(&flags.netlistPath, "netlist", "", "netlist file (required)")
	cmd.Flags().StringVar(&flags.placementPath, "place", "", "placement file, checked against the netlist fingerprint")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "TOML file supplying defaults for the flags below")
	cmd.Flags().BoolVar(&flags.verifyDigests, "verify-digests", flags.verifyDigests, "fail on placement/netlist fingerprint mismatch instead of warning")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "bypass the result cache")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the result cache entirely")
	cmd.Flags().BoolVar(&flags.jsonStats, "json-stats", false, "print the Result as JSON instead of a formatted summary")
	cmd.Flags().BoolVar(&flags.tui, "tui", false, "show a live progress view while packing")

	cmd.Flags().Int64Var(&flags.seed, "seed", flags.seed, "RNG seed")
	cmd.Flags().StringVar(&flags.clusterSeed, "cluster_seed", flags.clusterSeed, "seed selector policy (max_inputs|timing|blend)")
	cmd.Flags().Float64Var(&flags.alpha, "alpha", flags.alpha, "gain weight for the timing term")
	cmd.Flags().Float64Var(&flags.beta, "beta", flags.beta, "gain weight for connectivity term")
	cmd.Flags().BoolVar(&flags.allowUnrelatedClustering, "allow_unrelated_clustering", flags.allowUnrelatedClustering, "allow filler atoms with no net to the cluster")
	cmd.Flags().BoolVar(&flags.connectionDrivenClustering, "connection_driven_clustering", flags.connectionDrivenClustering, "weight gain by shared connectivity")
	cmd.Flags().BoolVar(&flags.timingDrivenClustering, "timing_driven_clustering", flags.timingDrivenClustering, "weight gain by timing criticality")
	cmd.Flags().Float64Var(&flags.interClusterNetDelay, "inter_cluster_net_delay", flags.interClusterNetDelay, "delay charged to a net crossing cluster boundaries")
	cmd.Flags().StringVar(&flags.timingPath, "timing", "", "JSON criticality table, consulted only when timing_driven_clustering is set")

	return cmd
}

func (c *CLI) runPack(cmd *cobra.Command, flags packFlags) error {
	logger := loggerFromContext(cmd.Context())

	if flags.archPath == "" || flags.netlistPath == "" {
		return fmt.Errorf("--arch and --netlist are required")
	}

	cfg, err := resolveConfig(flags)
	if err != nil {
		return err
	}

	cache, err := newCache(flags.noCache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	runs, err := newRunStore()
	if err != nil {
		logger.Warn("run history disabled", "err", err)
		runs = nil
	}
	runner := pipeline.NewRunner(cache, runs, logger)
	defer runner.Close()

	opts := pipeline.Options{
		NetlistPath:   flags.netlistPath,
		ArchPath:      flags.archPath,
		PlacementPath: flags.placementPath,
		VerifyDigests: flags.verifyDigests,
		TimingPath:    flags.timingPath,
		Config:        cfg,
		Refresh:       flags.refresh,
		Logger:        logger,
	}

	var result *pipeline.Result
	if flags.tui {
		result, err = c.runPackWithTUI(cmd, runner, opts)
	} else {
		sp := newSpinner("Packing")
		sp.Start()
		result, err = runner.Execute(cmd.Context(), opts)
		sp.Stop()
	}
	if err != nil {
		return err
	}

	if flags.jsonStats {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printPackSummary(result)
	return nil
}

func printPackSummary(result *pipeline.Result) {
	status := "computed"
	if result.CacheHit {
		status = "cached"
	}
	printSuccess("Packed %d clusters (%s)", len(result.Clusters), status)
	printKeyValue("Netlist", result.NetlistFingerprint[:12])
	printKeyValue("Arch", result.ArchFingerprint[:12])

	atomCount := 0
	for _, cl := range result.Clusters {
		atomCount += len(cl.Atoms)
		printDetail("%s (%s): %d atoms", cl.Name, cl.BlockType, len(cl.Atoms))
	}
	printStats(len(result.Clusters), atomCount, result.CacheHit)

	if !result.CacheHit {
		printNextStep("Re-run with the same inputs to confirm a cache hit", "fpgapack pack --arch <arch> --netlist <netlist>")
	}
}

// resolveConfig layers flags over a TOML config file, if one was named,
// which in turn layers over pctx.DefaultConfig; explicit flags always
// win, matching spec §6 ADDED's "explicit flags still win over the
// config file."
func resolveConfig(flags packFlags) (pctx.Config, error) {
	cfg := pctx.Config{
		Seed:                       flags.seed,
		ClusterSeed:                pctx.SeedPolicy(flags.clusterSeed),
		Alpha:                      flags.alpha,
		Beta:                       flags.beta,
		AllowUnrelatedClustering:   flags.allowUnrelatedClustering,
		ConnectionDrivenClustering: flags.connectionDrivenClustering,
		TimingDrivenClustering:     flags.timingDrivenClustering,
		InterClusterNetDelay:       flags.interClusterNetDelay,
	}
	if flags.configPath == "" {
		return cfg, nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(flags.configPath, &fc); err != nil {
		return cfg, fmt.Errorf("load config %q: %w", flags.configPath, err)
	}

	// Only apply a config-file value where the CLI still holds its
	// built-in default, so an explicit flag always wins.
	if fc.Seed != nil && flags.seed == pctx.DefaultConfig().Seed {
		cfg.Seed = *fc.Seed
	}
	if fc.ClusterSeed != nil && flags.clusterSeed == string(pctx.DefaultConfig().ClusterSeed) {
		cfg.ClusterSeed = pctx.SeedPolicy(*fc.ClusterSeed)
	}
	if fc.Alpha != nil && flags.alpha == pctx.DefaultConfig().Alpha {
		cfg.Alpha = *fc.Alpha
	}
	if fc.Beta != nil && flags.beta == pctx.DefaultConfig().Beta {
		cfg.Beta = *fc.Beta
	}
	if fc.AllowUnrelatedClustering != nil && flags.allowUnrelatedClustering == pctx.DefaultConfig().AllowUnrelatedClustering {
		cfg.AllowUnrelatedClustering = *fc.AllowUnrelatedClustering
	}
	if fc.ConnectionDrivenClustering != nil && flags.connectionDrivenClustering == pctx.DefaultConfig().ConnectionDrivenClustering {
		cfg.ConnectionDrivenClustering = *fc.ConnectionDrivenClustering
	}
	if fc.TimingDrivenClustering != nil && flags.timingDrivenClustering == pctx.DefaultConfig().TimingDrivenClustering {
		cfg.TimingDrivenClustering = *fc.TimingDrivenClustering
	}
	if fc.InterClusterNetDelay != nil && flags.interClusterNetDelay == pctx.DefaultConfig().InterClusterNetDelay {
		cfg.InterClusterNetDelay = *fc.InterClusterNetDelay
	}
	return cfg, nil
}
