package vault

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/storage"
)

// BackupFileName is the suggested file name of a backup taken on day.
func BackupFileName(day civil.Date) string {
	return "vault-backup-" + day.String() + ".json"
}

// Export serialises the whole vault in the current storage layout.
func (v *Vault) Export() ([]byte, error) {
	data, err := storage.Marshal(v.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("Export: %w", err)
	}
	return data, nil
}

// Import replaces the whole vault with a backup of any known layout and
// persists the result. Nothing changes when the data cannot be decoded.
func (v *Vault) Import(data []byte) (storage.MigrationReport, error) {
	snap, report, err := storage.Unmarshal(data, v.now().Location())
	if err != nil {
		return report, fmt.Errorf("Import: %w: %v", ErrInvalidInput, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.hydrateLocked(snap)
	v.log.Info().
		Int("from_version", report.FromVersion).
		Int("problems", len(report.Problems)).
		Msg("backup imported")
	if !v.reconcileLocked() {
		v.persistLocked()
	}
	return report, nil
}

// Reset wipes the local store and the in-memory state. Remote data is left
// untouched.
func (v *Vault) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.sync.ResetLocal(); err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	v.hydrateLocked(domain.EmptySnapshot())
	return nil
}
