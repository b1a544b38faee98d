package store

import (
	"context"
	"fmt"

	"github.com/jacentio/docket/internal/keys"
)

// ArchivePath returns the archive collection path for a collection path.
func (s *Store) ArchivePath(path string) string {
	return keys.ArchivePath(path, s.config.ArchiveSuffix)
}

// moveToArchive stages the snapshot into the archive collection and the
// removal of the primary record, so both commit together.
func (s *Store) moveToArchive(tx Tx, path, docID string, snapshot Fields) error {
	if err := tx.Set(s.ArchivePath(path), docID, snapshot); err != nil {
		return storeErr("archive", err)
	}
	if err := tx.Delete(path, docID); err != nil {
		return storeErr("delete", err)
	}
	return nil
}

// restoreFromArchive stages the removal of the archive record and the
// recreation of the primary record from its snapshot. It fails with
// ErrPreconditionFailed if the primary record exists.
func (s *Store) restoreFromArchive(ctx context.Context, tx Tx, path, docID string) error {
	archive := s.ArchivePath(path)
	snapshot, found, err := tx.Get(ctx, archive, docID)
	if err != nil {
		return storeErr("get archive", err)
	}
	if !found {
		return notFoundErr("archive record", archive, docID)
	}
	_, live, err := tx.Get(ctx, path, docID)
	if err != nil {
		return storeErr("get", err)
	}
	if live {
		return fmt.Errorf("%w: document %s/%s exists and would be overwritten", ErrPreconditionFailed, path, docID)
	}
	if err := tx.Delete(archive, docID); err != nil {
		return storeErr("delete archive", err)
	}
	if err := tx.Set(path, docID, snapshot); err != nil {
		return storeErr("restore", err)
	}
	return nil
}

// checkNotArchived fails with ErrPreconditionFailed if docID has an archive
// record, so a create never leaves it in both collections.
func (s *Store) checkNotArchived(ctx context.Context, tx Tx, path, docID string) error {
	archive := s.ArchivePath(path)
	_, found, err := tx.Get(ctx, archive, docID)
	if err != nil {
		return storeErr("get archive", err)
	}
	if found {
		return fmt.Errorf("%w: document %s/%s is archived; restore it instead", ErrPreconditionFailed, path, docID)
	}
	return nil
}
