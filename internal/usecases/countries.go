package usecases

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/integration"
)

// loadCountries reads the allow-list file, or rebuilds it from the ratification page when
// the file does not exist. Any failure, including an empty list, is returned to the caller.
func (a *Acquirer) loadCountries(ctx context.Context) ([]string, error) {
	countries, err := ReadCountryList(a.cfg.CountriesFile)
	if err == nil {
		a.logger.Info("loaded country allow-list", "path", a.cfg.CountriesFile, "countries", len(countries))
	} else {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read country allow-list: %w", err)
		}

		a.logger.Info("country allow-list not found, deriving it from the ratification page", "path", a.cfg.CountriesFile)
		countries, err = a.sources.Stringency.FetchMemberCountries(ctx)
		if err != nil {
			return nil, err
		}
		if len(countries) > 0 {
			if err := WriteCountryList(a.cfg.CountriesFile, countries); err != nil {
				return nil, fmt.Errorf("failed to save country allow-list: %w", err)
			}
		}
	}

	if len(countries) == 0 {
		return nil, entities.NewValidationError(entities.OECDRestrictionsDataset, "country allow-list is empty")
	}
	return countries, nil
}

// ReadCountryList reads one country name per line, skipping blank lines and # comments
func ReadCountryList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var countries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		countries = append(countries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return countries, nil
}

// WriteCountryList saves the allow-list in the format ReadCountryList expects
func WriteCountryList(path string, countries []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.Join(countries, "\n")+"\n"), 0644)
}

// PivotCountries builds a date-indexed table with one column per allow-listed country found
// in scores. Countries match case-insensitively; columns use the spelling of the scores and
// are sorted. The second return value lists allow-list entries with no matching row.
func PivotCountries(name string, scores []integration.CountryScores, allow []string) (*entities.Table, []string) {
	wanted := make(map[string]string, len(allow))
	for _, c := range allow {
		wanted[strings.ToUpper(strings.TrimSpace(c))] = c
	}

	var kept []integration.CountryScores
	found := make(map[string]bool)
	for _, s := range scores {
		key := strings.ToUpper(s.Country)
		if _, ok := wanted[key]; !ok || found[key] {
			continue
		}
		found[key] = true
		kept = append(kept, s)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Country < kept[j].Country })

	var missing []string
	for key, original := range wanted {
		if !found[key] {
			missing = append(missing, original)
		}
	}
	sort.Strings(missing)

	table := entities.NewTable(name)
	byDate := make(map[string][]string)
	var dates []string
	for col, s := range kept {
		table.Columns = append(table.Columns, s.Country)
		for i, d := range s.Dates {
			key := entities.FormatDate(d)
			row, ok := byDate[key]
			if !ok {
				row = make([]string, len(kept))
				byDate[key] = row
				dates = append(dates, key)
			}
			row[col] = s.Scores[i]
		}
	}

	sort.Strings(dates)
	for _, key := range dates {
		d, _ := entities.ParseDate(key)
		table.Append(d, byDate[key]...)
	}
	return table, missing
}
