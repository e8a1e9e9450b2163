package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmax-ai/orbit/pkg/simulation"
)

func main() {
	var (
		scenarioName string
		scenarioFile string
		steps        int
		seed         int64
		jsonOutput   bool
		outputFile   string
		metricsAddr  string
	)

	flag.StringVar(&scenarioName, "scenario", "drift", "Built-in scenario name ("+builtinNames()+")")
	flag.StringVar(&scenarioFile, "scenario-file", "", "Path to a scenario JSON file (overrides -scenario)")
	flag.IntVar(&steps, "steps", 0, "Override the scenario's step count")
	flag.Int64Var(&seed, "seed", 0, "Override the scenario's seed (0 = time-based)")
	flag.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	flag.StringVar(&outputFile, "out", "", "Write output to file instead of stdout")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address during the run (e.g. :9091)")
	flag.Parse()

	var scenario simulation.Scenario

	if scenarioFile != "" {
		data, err := os.ReadFile(scenarioFile)
		if err != nil {
			log.Fatalf("Failed to read scenario file: %v", err)
		}
		if err := json.Unmarshal(data, &scenario); err != nil {
			log.Fatalf("Failed to parse scenario file: %v", err)
		}
	} else {
		sc, ok := simulation.Scenarios()[scenarioName]
		if !ok {
			log.Fatalf("Unknown scenario %q (built-in: %s)", scenarioName, builtinNames())
		}
		scenario = sc
	}

	if steps > 0 {
		scenario.Steps = steps
	}
	if seed != 0 {
		scenario.Seed = seed
	}

	if metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				log.Printf("metrics server failed: %v", err)
			}
		}()
	}

	result := simulation.RunScenario(scenario)

	writeReport(result, jsonOutput, outputFile)

	if !result.Success {
		os.Exit(1)
	}
}

func builtinNames() string {
	var names []string
	for name := range simulation.Scenarios() {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func writeReport(res simulation.Result, jsonFmt bool, filePath string) {
	var output []byte
	var err error

	if jsonFmt {
		output, err = json.MarshalIndent(res, "", "  ")
	} else {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("\n--- Simulation Report: %s ---\n", res.ScenarioName))
		buf.WriteString(fmt.Sprintf("Seed: %d | Steps: %d | Duration: %s\n", res.Seed, res.Steps, res.Duration))
		buf.WriteString(fmt.Sprintf("Swipes: %d tried, %d committed, %d aborted\n",
			res.SwipesTried, res.SwipesCommit, res.SwipesAborted))
		buf.WriteString(fmt.Sprintf("Rewinds: %d | Edge hits: %d | Saves: %d | Jumps: %d\n",
			res.Rewinds, res.EdgeHits, res.Saves, res.Jumps))
		buf.WriteString(fmt.Sprintf("Final: depth %d, %d edges, %d unique movies\n",
			res.FinalDepth, res.FinalEdges, res.UniqueMovies))

		if len(res.Violations) > 0 {
			buf.WriteString("\nViolations:\n")
			for _, v := range res.Violations {
				buf.WriteString("  " + v + "\n")
			}
		}

		if len(res.Invariants) > 0 {
			buf.WriteString("\nInvariants:\n")
			for _, inv := range res.Invariants {
				status := "FAIL"
				if inv.Passed {
					status = "PASS"
				}
				buf.WriteString(fmt.Sprintf("[%s] %s: Expected %s, Got %s\n", status, inv.Metric, inv.Expected, inv.Actual))
			}
		}
		output = buf.Bytes()
	}

	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}

	if filePath != "" {
		if err := os.WriteFile(filePath, output, 0644); err != nil {
			log.Fatalf("Failed to write report to %s: %v", filePath, err)
		}
		fmt.Printf("Report written to %s\n", filePath)
	} else {
		fmt.Println(string(output))
	}
}
