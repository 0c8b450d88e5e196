// Package fsa downloads the Food Standards Agency open data files. It is
// the collaborator that deposits dated batch directories for the pipeline;
// it shares no state with the process command.
package fsa

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"fhrs-tracker/config"
	"fhrs-tracker/utils"
)

const baseURL = "https://ratings.food.gov.uk"

// Fetcher downloads one XML file per local authority into a dated directory.
type Fetcher struct {
	cfg    *config.Config
	logger *utils.Logger
	client *retryablehttp.Client
	pool   *utils.WorkerPool
}

// New creates a ready-to-use Fetcher.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.HTTPClient.Timeout = 60 * time.Second
	client.Logger = nil

	return &Fetcher{
		cfg:    cfg,
		logger: logger,
		client: client,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
	}
}

// FetchAll discovers all local authority IDs and downloads their open data
// files into <FetchRoot>/<YYYY-MM-DD>/. Individual download failures are
// logged and counted; only a run with zero successful downloads fails.
func (f *Fetcher) FetchAll() error {
	date := time.Now().Format("2006-01-02")
	outDir := filepath.Join(f.cfg.FetchRoot, date)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("fsa: create output dir: %w", err)
	}

	ids, err := f.discoverAuthorityIDs()
	if err != nil {
		return err
	}
	f.logger.Info("[fsa] Discovered %d local authorities", len(ids))

	var (
		mu     sync.Mutex
		ok     int
		failed int
	)
	for _, id := range ids {
		id := id
		f.pool.Submit(func() {
			if err := f.downloadAuthority(id, outDir); err != nil {
				f.logger.Warn("[fsa] Authority %d failed: %v", id, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		})
	}
	f.pool.Wait()

	f.logger.Info("[fsa] Downloaded %d files (%d failed) to %s", ok, failed, outDir)
	if ok == 0 {
		return fmt.Errorf("fsa: no files downloaded")
	}
	return f.writeMetadata(outDir, ok, failed)
}

// authoritiesPayload tolerates both casings the API has been seen to use.
type authoritiesPayload struct {
	Authorities      []authorityEntry `json:"authorities"`
	AuthoritiesUpper []authorityEntry `json:"Authorities"`
}

type authorityEntry struct {
	LocalAuthorityID int `json:"LocalAuthorityId"`
	ID               int `json:"Id"`
}

func (f *Fetcher) discoverAuthorityIDs() ([]int, error) {
	req, err := retryablehttp.NewRequest("GET", baseURL+"/Authorities/basic", nil)
	if err != nil {
		return nil, fmt.Errorf("fsa: build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-version", "2")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fsa: list authorities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fsa: list authorities: status %d", resp.StatusCode)
	}

	var payload authoritiesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fsa: decode authorities: %w", err)
	}

	entries := payload.Authorities
	if len(entries) == 0 {
		entries = payload.AuthoritiesUpper
	}

	seen := make(map[int]struct{})
	var ids []int
	for _, e := range entries {
		id := e.LocalAuthorityID
		if id == 0 {
			id = e.ID
		}
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("fsa: no authority IDs in response")
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *Fetcher) downloadAuthority(id int, outDir string) error {
	url := fmt.Sprintf("%s/api/open-data-files/FHRS%den-GB.xml", baseURL, id)
	resp, err := f.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	path := filepath.Join(outDir, fmt.Sprintf("FHRS%den-GB.xml", id))
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	f.logger.Debug("[fsa] Authority %d: %.1f MB", id, float64(n)/(1024*1024))
	return nil
}

func (f *Fetcher) writeMetadata(outDir string, ok, failed int) error {
	path := filepath.Join(outDir, "download_metadata.txt")
	content := fmt.Sprintf("Download Date: %s\nFiles Downloaded: %d\nFailed Downloads: %d\nSource: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), ok, failed, baseURL+"/open-data")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("fsa: write metadata: %w", err)
	}
	return nil
}
