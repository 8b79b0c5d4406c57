package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// FileStore persists calibration profiles as JSON files under
// <dataDir>/calibration/<namespace>/<domain>.json, matching §6's
// "JSON files... keyed by domain" contract.
type FileStore struct {
	baseDir string // <dataDir>/calibration/<namespace>
}

// NewFileStore returns a FileStore rooted at dataDir for the given
// namespace, creating the directory if it does not exist.
func NewFileStore(dataDir string, namespace model.Namespace) (*FileStore, error) {
	dir := filepath.Join(dataDir, "calibration", namespaceDirName(namespace))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("calibration: creating %s: %w", dir, err)
	}
	return &FileStore{baseDir: dir}, nil
}

func namespaceDirName(ns model.Namespace) string {
	raw := ns.TenantID + "_" + ns.TeamID + "_" + ns.ProjectID
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, raw)
}

func (s *FileStore) path(domain string) string {
	return filepath.Join(s.baseDir, domain+".json")
}

// Load reads a domain's profile, returning (nil, nil) if it does not exist
// yet so the engine can seed a fresh prior.
func (s *FileStore) Load(domain string) (*model.CalibrationProfile, error) {
	data, err := os.ReadFile(s.path(domain))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("calibration: reading %s: %w", s.path(domain), err)
	}

	var profile model.CalibrationProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("calibration: decoding %s: %w", s.path(domain), err)
	}
	return &profile, nil
}

// Save writes a domain's profile to disk.
func (s *FileStore) Save(profile *model.CalibrationProfile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("calibration: encoding profile for %q: %w", profile.Domain, err)
	}
	if err := os.WriteFile(s.path(profile.Domain), data, 0o644); err != nil {
		return fmt.Errorf("calibration: writing %s: %w", s.path(profile.Domain), err)
	}
	return nil
}

// List returns every persisted profile under the store's base directory.
func (s *FileStore) List() ([]*model.CalibrationProfile, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("calibration: listing %s: %w", s.baseDir, err)
	}

	var profiles []*model.CalibrationProfile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		domain := strings.TrimSuffix(entry.Name(), ".json")
		profile, err := s.Load(domain)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			profiles = append(profiles, profile)
		}
	}
	return profiles, nil
}

var _ Store = (*FileStore)(nil)
