// Package pipeline orchestrates the sync run: it loads enriched dossiers,
// projects them into lead rows, geocodes missing coordinates, and hands
// the rows to the store.
package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carebridge/leadsync-cli/internal/model"
)

// LoadDossiers reads dossiers from a JSONL file. Blank and malformed lines
// are skipped; upstream enrichment occasionally truncates a record and one
// bad line must not sink the batch.
func LoadDossiers(path string) ([]model.Dossier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var dossiers []model.Dossier
	var skipped int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var d model.Dossier
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			skipped++
			continue
		}
		dossiers = append(dossiers, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}

	if skipped > 0 {
		zap.L().Warn("skipped malformed dossier lines",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return dossiers, nil
}
