// Replay tool for driving Kestrel with CDR traffic.
//
// Usage:
//   go run cmd/replay/main.go -csv /path/to/cdrs.csv -url http://localhost:8080
//   go run cmd/replay/main.go -synthetic 10000 -url http://localhost:8080
//
// This tool:
//  1. Reads labeled CDR data from CSV, or synthesizes traffic
//  2. Sends each record to Kestrel for detection
//  3. Compares Kestrel's verdict with the labels (when present)
//  4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-telco/kestrel/internal/domain"
	"github.com/opensource-telco/kestrel/internal/feed"
)

// LabeledCDR is one replay record, optionally carrying a ground-truth
// fraud label from the dataset.
type LabeledCDR struct {
	Request domain.CDRRequest
	Labeled bool
	IsFraud bool
}

// Metrics tracks replay results.
type Metrics struct {
	TruePositives  int64
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64

	TotalProcessed int64
	TotalFlagged   int64
	TotalLabeled   int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled CDR CSV file")
	synthetic := flag.Int("synthetic", 0, "Number of synthetic CDRs to generate instead of reading a CSV")
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	limit := flag.Int("limit", 0, "Maximum records to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each record result")
	flag.Parse()

	if *csvPath == "" && *synthetic == 0 {
		fmt.Println("Usage: replay -csv /path/to/cdrs.csv [-url http://localhost:8080]")
		fmt.Println("       replay -synthetic 10000 [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              KESTREL REPLAY - CDR Fraud Detection             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	if *csvPath != "" {
		fmt.Printf("\nCSV File:     %s\n", *csvPath)
	} else {
		fmt.Printf("\nSynthetic:    %d records\n", *synthetic)
	}
	fmt.Printf("Kestrel URL:  %s\n", *baseURL)
	fmt.Printf("Workers:      %d\n", *workers)
	fmt.Printf("Limit:        %d\n", *limit)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	var records []LabeledCDR
	var err error
	if *csvPath != "" {
		fmt.Printf("\nReading CDR data from %s...\n", *csvPath)
		records, err = readCDRCSV(*csvPath, *limit)
		if err != nil {
			fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
			os.Exit(1)
		}
	} else {
		records = synthesize(*synthetic)
	}
	fmt.Printf("✓ Loaded %d records\n", len(records))

	fraudCount := 0
	for _, r := range records {
		if r.Labeled && r.IsFraud {
			fraudCount++
		}
	}
	if fraudCount > 0 {
		fmt.Printf("  - Labeled fraud: %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(records)))
	}

	fmt.Printf("\nRunning replay with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runReplay(records, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readCDRCSV reads records with columns caller_id, destination,
// duration, timestamp, origin_region, target_region, and an optional
// is_fraud label column.
func readCDRCSV(path string, limit int) ([]LabeledCDR, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"caller_id", "destination", "duration", "timestamp"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	_, labeled := colIndex["is_fraud"]

	var records []LabeledCDR
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		duration, _ := strconv.ParseFloat(row[colIndex["duration"]], 64)

		rec := LabeledCDR{
			Request: domain.CDRRequest{
				CallerID:    row[colIndex["caller_id"]],
				Destination: row[colIndex["destination"]],
				Duration:    duration,
				Timestamp:   row[colIndex["timestamp"]],
			},
			Labeled: labeled,
		}
		if i, ok := colIndex["origin_region"]; ok {
			rec.Request.OriginRegion = row[i]
		}
		if i, ok := colIndex["target_region"]; ok {
			rec.Request.TargetRegion = row[i]
		}
		if labeled {
			rec.IsFraud = row[colIndex["is_fraud"]] == "1"
		}

		records = append(records, rec)

		if limit > 0 && len(records) >= limit {
			break
		}
	}

	return records, nil
}

// synthesize produces unlabeled traffic from the live-feed generator.
func synthesize(n int) []LabeledCDR {
	gen := feed.NewGenerator(time.Now().UnixNano())
	records := make([]LabeledCDR, 0, n)
	for _, cdr := range gen.Batch(n) {
		records = append(records, LabeledCDR{
			Request: domain.CDRRequest{
				CallerID:     cdr.CallerID,
				Destination:  cdr.Destination,
				Duration:     cdr.Duration,
				Timestamp:    cdr.Timestamp.Format(time.RFC3339),
				OriginRegion: cdr.OriginRegion,
				TargetRegion: cdr.TargetRegion,
			},
		})
	}
	return records
}

func runReplay(records []LabeledCDR, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledCDR, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for rec := range work {
				start := time.Now()
				result, err := processCDR(client, baseURL, rec.Request)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", rec.Request.CallerID, err)
					}
					continue
				}

				if result.IsFraud {
					atomic.AddInt64(&metrics.TotalFlagged, 1)
				}

				if rec.Labeled {
					atomic.AddInt64(&metrics.TotalLabeled, 1)
					switch {
					case result.IsFraud && rec.IsFraud:
						atomic.AddInt64(&metrics.TruePositives, 1)
					case result.IsFraud && !rec.IsFraud:
						atomic.AddInt64(&metrics.FalsePositives, 1)
					case !result.IsFraud && !rec.IsFraud:
						atomic.AddInt64(&metrics.TrueNegatives, 1)
					default:
						atomic.AddInt64(&metrics.FalseNegatives, 1)
					}
				}

				if verbose {
					fmt.Printf("%-15s | Score: %5.1f | Fraud: %-5v | Type: %-17s | Cluster: %s\n",
						rec.Request.CallerID,
						result.RiskScore,
						result.IsFraud,
						result.FraudType,
						result.ClusterID,
					)
				}
			}
		}()
	}

	for _, rec := range records {
		work <- rec
	}
	close(work)

	wg.Wait()

	return metrics
}

func processCDR(client *http.Client, baseURL string, req domain.CDRRequest) (*domain.ProcessResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/cdr", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result domain.ProcessResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                        REPLAY RESULTS                         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Flagged:    %d\n", m.TotalFlagged)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	if m.TotalLabeled > 0 {
		fmt.Printf("\n📈 CONFUSION MATRIX\n")
		fmt.Println("                        Predicted")
		fmt.Println("                   FRAUD       CLEAN")
		fmt.Println("              ┌──────────┬──────────┐")
		fmt.Printf("   Actual  F  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
		fmt.Println("              ├──────────┼──────────┤")
		fmt.Printf("          NF  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
		fmt.Println("              └──────────┴──────────┘")

		precision := float64(0)
		if m.TruePositives+m.FalsePositives > 0 {
			precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
		}

		recall := float64(0)
		if m.TruePositives+m.FalseNegatives > 0 {
			recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
		}

		f1 := float64(0)
		if precision+recall > 0 {
			f1 = 2 * (precision * recall) / (precision + recall)
		}

		accuracy := float64(0)
		total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
		if total > 0 {
			accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
		}

		fmt.Printf("\n🎯 DETECTION METRICS\n")
		fmt.Printf("   Precision:  %.4f  (of flagged callers, how many were actual fraud)\n", precision)
		fmt.Printf("   Recall:     %.4f  (of fraud, how many did we catch)\n", recall)
		fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
		fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f records/sec\n", tps)
	}

	fmt.Println()
}
