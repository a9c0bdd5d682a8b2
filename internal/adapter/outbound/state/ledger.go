package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/openheads/headcatalog/internal/domain/acquisition"
)

// FileLedger implements acquisition.Ledger on top of a JSON file.
//
// Reads parse the current file. Writes run load-apply-write under both an
// in-process mutex and a flock on path+".lock", so several processes can
// share one ledger file.
type FileLedger struct {
	path     string
	starting float64
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewFileLedger creates a ledger backed by path. New users hold startingBalance.
func NewFileLedger(path string, startingBalance float64, logger *slog.Logger) *FileLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLedger{path: path, starting: startingBalance, logger: logger}
}

// HasFunds reports whether the user's balance covers amount.
func (l *FileLedger) HasFunds(ctx context.Context, userID string, amount float64) (bool, error) {
	b, err := l.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return b >= amount, nil
}

// Balance returns the user's balance.
func (l *FileLedger) Balance(_ context.Context, userID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load()
	if err != nil {
		return 0, err
	}
	return l.balanceOf(st, userID), nil
}

// Debit subtracts amount, failing with acquisition.ErrInsufficientFunds when
// the stored balance is too low.
func (l *FileLedger) Debit(_ context.Context, userID string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative debit %v", amount)
	}
	return l.update(func(st *LedgerState) error {
		b := l.balanceOf(st, userID)
		if b < amount {
			return acquisition.ErrInsufficientFunds
		}
		st.Balances[userID] = b - amount
		return nil
	})
}

// Credit adds amount.
func (l *FileLedger) Credit(_ context.Context, userID string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative credit %v", amount)
	}
	return l.update(func(st *LedgerState) error {
		st.Balances[userID] = l.balanceOf(st, userID) + amount
		return nil
	})
}

// SetBalance overwrites the user's balance.
func (l *FileLedger) SetBalance(userID string, amount float64) error {
	return l.update(func(st *LedgerState) error {
		st.Balances[userID] = amount
		return nil
	})
}

// Path returns the ledger file path.
func (l *FileLedger) Path() string {
	return l.path
}

func (l *FileLedger) balanceOf(st *LedgerState, userID string) float64 {
	if b, ok := st.Balances[userID]; ok {
		return b
	}
	return l.starting
}

// load reads the ledger file. A missing file yields an empty ledger.
func (l *FileLedger) load() (*LedgerState, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newLedgerState(), nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	var st LedgerState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse ledger file: %w", err)
	}
	if st.Balances == nil {
		st.Balances = map[string]float64{}
	}
	return &st, nil
}

// update applies fn to the freshly loaded state and writes it back:
//  1. in-process mutex, then flock on path+".lock"
//  2. load the current file
//  3. apply fn; an error from fn aborts without writing
//  4. back up the current file to path+".bak"
//  5. write path+".tmp", fsync, rename over path
func (l *FileLedger) update(fn func(*LedgerState) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lf, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lf.Close() }()

	unlock, err := lockExclusive(lf)
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer unlock()

	st, err := l.load()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	st.UpdatedAt = time.Now().UTC()

	if current, readErr := os.ReadFile(l.path); readErr == nil {
		if writeErr := os.WriteFile(l.path+".bak", current, 0600); writeErr != nil {
			l.logger.Warn("failed to back up ledger", "error", writeErr)
		}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	data = append(data, '\n')

	if err := l.writeAtomic(data); err != nil {
		return err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(l.path, 0600); err != nil {
			l.logger.Warn("failed to set ledger permissions", "error", err)
		}
	}
	l.logger.Debug("ledger saved", "path", l.path)
	return nil
}

func (l *FileLedger) writeAtomic(data []byte) error {
	tmpPath := l.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	discard := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		discard()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		discard()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to ledger: %w", err)
	}
	return nil
}

var _ acquisition.Ledger = (*FileLedger)(nil)
