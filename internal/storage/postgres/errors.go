package postgres

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when there is nothing to load.
	ErrEmptyInput = errors.New("no records to load")
	// ErrNoBackup is returned by Restore when no backup table exists.
	ErrNoBackup = errors.New("no backup table found")
	// ErrRestoreMismatch is returned when the restored table and its backup
	// disagree on row count.
	ErrRestoreMismatch = errors.New("restored row count does not match backup")
	// ErrBackupLocked is returned when another run holds the backup lock.
	ErrBackupLocked = errors.New("backup lock held by another run")
)

// ReplaceError reports a failed Replace together with the outcome of the
// restore that followed it.
type ReplaceError struct {
	Err        error  // failure that triggered the restore
	Backup     string // backup table restored from, if one was found
	Restored   bool
	RestoreErr error
}

func (e *ReplaceError) Error() string {
	if e.Restored {
		return fmt.Sprintf("replace failed, restored from %s: %v", e.Backup, e.Err)
	}
	return fmt.Sprintf("replace failed, restore failed (%v): %v", e.RestoreErr, e.Err)
}

func (e *ReplaceError) Unwrap() []error {
	if e.RestoreErr == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.RestoreErr}
}
