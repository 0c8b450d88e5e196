package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"fhrs-tracker/models"
	"fhrs-tracker/utils"
)

// ErrNoBatch is returned when no candidate root contains a directory with at
// least one data file. There is nothing to process, so the run must abort.
var ErrNoBatch = errors.New("batch: no directory with data files found")

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Locator resolves which directory of input files represents "now".
type Locator struct {
	roots  []string
	logger *utils.Logger
}

// NewLocator creates a Locator scanning the given roots in priority order.
func NewLocator(roots []string, logger *utils.Logger) *Locator {
	return &Locator{roots: roots, logger: logger}
}

// Locate selects the current batch. Roots are tried in priority order: the
// first root holding date-named (YYYY-MM-DD) subdirectories wins, and the
// lexicographically greatest dated directory with at least one XML file is
// selected. If no root has a dated layout with data, all subdirectories of
// all roots are scanned and the one holding the most XML files is used.
func (l *Locator) Locate() (*models.Batch, error) {
	for _, root := range l.roots {
		if b := l.latestDated(root); b != nil {
			l.logger.Info("[batch] Selected dated batch %s (%d files)", b.Dir, len(b.Files))
			return b, nil
		}
	}

	if b := l.mostFiles(); b != nil {
		l.logger.Warn("[batch] No dated layout found — fell back to %s (%d files)", b.Dir, len(b.Files))
		return b, nil
	}

	return nil, ErrNoBatch
}

// latestDated returns the newest dated batch under root, or nil.
func (l *Locator) latestDated(root string) *models.Batch {
	entries, err := os.ReadDir(root)
	if err != nil {
		l.logger.Debug("[batch] Skipping root %s: %v", root, err)
		return nil
	}

	var dated []string
	for _, e := range entries {
		if e.IsDir() && datePattern.MatchString(e.Name()) {
			dated = append(dated, e.Name())
		}
	}
	if len(dated) == 0 {
		return nil
	}

	// Zero-padded ISO dates: lexical max is the latest. Walk backwards so an
	// empty latest directory falls through to the previous one.
	sort.Sort(sort.Reverse(sort.StringSlice(dated)))
	for _, name := range dated {
		dir := filepath.Join(root, name)
		files := dataFiles(dir)
		if len(files) == 0 {
			l.logger.Warn("[batch] Dated directory %s has no data files, skipping", dir)
			continue
		}
		return &models.Batch{Dir: dir, Files: files, Date: name}
	}
	return nil
}

// mostFiles scans every subdirectory of every root and returns the one with
// the most data files. Ties keep the first directory encountered in priority
// order.
func (l *Locator) mostFiles() *models.Batch {
	var best *models.Batch
	for _, root := range l.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(root, e.Name())
			files := dataFiles(dir)
			if len(files) == 0 {
				continue
			}
			if best == nil || len(files) > len(best.Files) {
				date, inferred := inferDate(dir)
				best = &models.Batch{Dir: dir, Files: files, Date: date, DateInferred: inferred}
			}
		}
	}
	return best
}

// inferDate derives the batch's logical date from the directory name, then
// the parent directory's name, then falls back to today.
func inferDate(dir string) (string, bool) {
	name := filepath.Base(dir)
	if datePattern.MatchString(name) {
		return name, false
	}
	parent := filepath.Base(filepath.Dir(dir))
	if datePattern.MatchString(parent) {
		return parent, false
	}
	return time.Now().Format("2006-01-02"), true
}

func dataFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files
}

// Describe renders a short human-readable summary for logging.
func Describe(b *models.Batch) string {
	suffix := ""
	if b.DateInferred {
		suffix = " (date inferred from run time)"
	}
	return fmt.Sprintf("%s dated %s%s", b.Dir, b.Date, suffix)
}
