// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	pubgrub "github.com/contriboss/pubgrub-composer"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Resolve a manifest against package repositories",
	Long: `Resolve the requirements of a project manifest against one or more
repository files. Repositories are consulted in the order given; when two
publish the same version of a package the earlier one wins.

On success the selected version of every package is printed. On failure
the command prints why no solution exists and exits with status 1.

Development requirements from require-dev are resolved unless --no-dev is
given; packages only they pull in are marked "(dev)".`,
	Example: `  pubgrub-composer solve -m composer.yaml -r packages.yaml
  pubgrub-composer solve -m composer.yaml -r local.yaml -r packagist.yaml --prefer lowest
  pubgrub-composer solve -m composer.yaml -r packages.yaml --no-dev`,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringSliceP("repo", "r", nil, "Repository YAML file (repeatable)")
	solveCmd.Flags().StringP("manifest", "m", "composer.yaml", "Project manifest YAML file")
	solveCmd.Flags().Int("max-steps", 100000, "Step budget, 0 disables the limit")
	solveCmd.Flags().String("prefer", "", "Override the manifest preference: highest, lowest or stable")
	solveCmd.Flags().String("minimum-stability", "", "Override the manifest minimum stability")
	solveCmd.Flags().Bool("no-dev", false, "Skip the manifest's require-dev section")
	solveCmd.Flags().Bool("collapsed", false, "Explain failures in the collapsed format")
	solveCmd.Flags().Int("workers", 32, "Concurrent metadata fetches")
	solveCmd.Flags().Duration("timeout", 0, "Abort solving after this long, 0 waits forever")
	solveCmd.Flags().Bool("metrics", false, "Print solver metrics after solving")
	solveCmd.Flags().Bool("trace", false, "Write OpenTelemetry spans to stderr")
}

func runSolve(cmd *cobra.Command, args []string) error {
	// Get flags
	repos, _ := cmd.Flags().GetStringSlice("repo")
	manifestPath, _ := cmd.Flags().GetString("manifest")
	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	prefer, _ := cmd.Flags().GetString("prefer")
	minimumStability, _ := cmd.Flags().GetString("minimum-stability")
	noDev, _ := cmd.Flags().GetBool("no-dev")
	collapsed, _ := cmd.Flags().GetBool("collapsed")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	showMetrics, _ := cmd.Flags().GetBool("metrics")
	trace, _ := cmd.Flags().GetBool("trace")

	if len(repos) == 0 {
		return errors.New("at least one --repo is required")
	}
	logger := newLogger(cmd.ErrOrStderr())

	manifest, err := pubgrub.LoadManifestFile(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	policy := manifest.Policy
	if prefer != "" {
		mode, ok := pubgrub.ParseResolutionMode(prefer)
		if !ok {
			return fmt.Errorf("unknown --prefer value %q", prefer)
		}
		policy.Mode = mode
	}
	if minimumStability != "" {
		s, ok := pubgrub.ParseStability(minimumStability)
		if !ok {
			return fmt.Errorf("unknown --minimum-stability value %q", minimumStability)
		}
		policy.MinimumStability = s
	}

	sources := make(pubgrub.CombinedSource, 0, len(repos))
	for _, path := range repos {
		repo, err := pubgrub.LoadRepositoryFile(path)
		if err != nil {
			return fmt.Errorf("failed to load repository %s: %w", path, err)
		}
		logger.Info("loaded repository", "path", path, "packages", len(repo.Names()))
		sources = append(sources, repo)
	}

	registry := prometheus.NewRegistry()
	metrics := pubgrub.NewMetrics(registry)
	cached := pubgrub.NewCachedSource(sources,
		pubgrub.WithPrefetchWorkers(workers),
		pubgrub.WithCacheMetrics(metrics),
	)

	opts := []pubgrub.SolverOption{
		pubgrub.WithPolicy(policy),
		pubgrub.WithMaxSteps(maxSteps),
		pubgrub.WithLogger(logger),
		pubgrub.WithMetrics(metrics),
		pubgrub.WithDevRequirements(!noDev),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()
		opts = append(opts, pubgrub.WithTracer(provider.Tracer("pubgrub-composer")))
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	solver := pubgrub.NewSolverWithOptions([]pubgrub.Source{cached}, opts...)
	start := time.Now()
	solution, err := solver.Solve(ctx, manifest.Root)
	elapsed := time.Since(start)
	cached.Wait()

	stats := cached.GetCacheStats()
	logger.Info("metadata cache",
		"calls", humanize.Comma(int64(stats.Calls)),
		"fetches", humanize.Comma(int64(stats.Fetches)),
		"prefetches", humanize.Comma(int64(stats.Prefetches)),
		"hit_rate", fmt.Sprintf("%.1f%%", stats.HitRate*100),
	)

	out := cmd.OutOrStdout()
	if err != nil {
		printFailure(out, err, collapsed)
	} else {
		printSolution(out, solution, elapsed)
	}
	if showMetrics {
		if err := printMetrics(out, registry); err != nil {
			return err
		}
	}
	if err != nil {
		return fmt.Errorf("resolution failed: %s", pubgrub.KindOf(err))
	}
	return nil
}

func printSolution(w io.Writer, solution pubgrub.Solution, elapsed time.Duration) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	width := 0
	for nv := range solution.All() {
		width = max(width, len(nv.Name.String()))
	}
	for _, name := range solution.ReplacedNames() {
		width = max(width, len(name.String()))
	}

	fmt.Fprintf(w, "Resolved %s %s in %s:\n\n",
		humanize.Comma(int64(solution.Len())),
		plural(solution.Len(), "package", "packages"),
		elapsed.Round(time.Millisecond),
	)
	for nv := range solution.All() {
		marker := ""
		if solution.IsDev(nv.Name) {
			marker = gray(" (dev)")
		}
		fmt.Fprintf(w, "  %s  %s%s\n", cyan(pad(nv.Name.String(), width)), green(nv.Version), marker)
	}
	for _, name := range solution.ReplacedNames() {
		fmt.Fprintf(w, "  %s  %s\n", cyan(pad(name.String(), width)), gray("replaced by "+solution.Replaced[name].String()))
	}
}

func printFailure(w io.Writer, err error, collapsed bool) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	var noSolution *pubgrub.NoSolutionError
	if !errors.As(err, &noSolution) {
		fmt.Fprintf(w, "%s %v\n", red(pubgrub.KindOf(err).String()+":"), err)
		return
	}
	if collapsed {
		noSolution = noSolution.WithReporter(&pubgrub.CollapsedReporter{})
	}
	fmt.Fprintf(w, "%s\n\n", red("Version solving failed ("+noSolution.Kind.String()+")"))
	fmt.Fprintln(w, noSolution.Error())
	if len(noSolution.Core) > 0 {
		terms := make([]string, len(noSolution.Core))
		for i, t := range noSolution.Core {
			terms[i] = t.String()
		}
		fmt.Fprintf(w, "\nConflict core: {%s}\n", strings.Join(terms, ", "))
	}
}

func printMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %s\n", name, humanize.Ftoa(m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%s sum=%s\n", name,
					humanize.Comma(int64(h.GetSampleCount())), humanize.Ftoa(h.GetSampleSum()))
			}
		}
	}
	return nil
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
