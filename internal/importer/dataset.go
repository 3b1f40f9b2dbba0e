package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/leetease/catalog-engine/internal/models"
)

// ManifestFile overrides the bucket file map when present in a dataset root
const ManifestFile = "buckets.yaml"

// DefaultBucketFiles maps dataset file names to buckets
var DefaultBucketFiles = map[string]string{
	"1. Thirty Days.csv":          models.Bucket30Days,
	"2. Three Months.csv":         models.Bucket3Months,
	"3. Six Months.csv":           models.Bucket6Months,
	"4. More Than Six Months.csv": models.BucketMoreThan6Months,
	"5. All.csv":                  models.BucketAll,
}

// manifest represents the YAML structure of buckets.yaml
type manifest struct {
	Buckets map[string]string `yaml:"buckets"`
}

// LoadBucketFiles reads the bucket file map of a dataset root, falling back
// to DefaultBucketFiles when the root has no manifest.
func LoadBucketFiles(root string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultBucketFiles, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ManifestFile, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	if len(m.Buckets) == 0 {
		return nil, models.NewValidationError(ManifestFile, "buckets must map at least one file name")
	}
	for file, bucket := range m.Buckets {
		if file == "" || bucket == "" {
			return nil, models.NewValidationError(ManifestFile, "file names and buckets must not be empty")
		}
	}

	return m.Buckets, nil
}

// LoadDir imports a dataset laid out as root/<Company>/<bucket file>. Every
// directory under root is a company; files missing from a company are
// skipped, as are unreadable files.
func (im *Importer) LoadDir(ctx context.Context, root string) (*Result, error) {
	slog.Info("loading dataset from directory", "dir", root)

	files, err := LoadBucketFiles(root)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	total := &Result{}
	companies := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		res, err := im.loadCompany(ctx, filepath.Join(root, entry.Name()), entry.Name(), names, files)
		if err != nil {
			return total, err
		}
		total.Add(res)
		companies++

		slog.Info("company loaded", "company", entry.Name(), "imported", res.Imported, "skipped", res.Skipped)
	}

	slog.Info("dataset loaded", "companies", companies, "imported", total.Imported, "skipped", total.Skipped)
	return total, nil
}

// loadCompany imports the bucket files of one company directory
func (im *Importer) loadCompany(ctx context.Context, dir, company string, names []string, files map[string]string) (*Result, error) {
	res := &Result{}

	if _, err := im.w.UpsertCompany(ctx, company); err != nil {
		return res, fmt.Errorf("failed to create company %q: %w", company, err)
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // bucket not provided
		}

		table, err := readPath(path)
		if err != nil {
			slog.Warn("failed to read bucket file", "file", path, "error", err)
			continue
		}

		rows, skipped := TableRows(table, company, files[name])
		imported, err := im.Import(ctx, rows)
		res.Add(imported)
		res.Skipped += skipped
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func readPath(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ReadFile(path, f)
}
