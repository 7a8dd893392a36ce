package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/ioncon/internal/grid"
	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/service"
	"github.com/matthewbaird/ioncon/internal/types"
)

// LoadList fetches the IONCON rows into the list and the grid.
func (c *Controller) LoadList(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Phase != PhaseReady && c.state.Phase != PhaseListLoading {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.mu.Unlock()
	return c.loadList(ctx)
}

func (c *Controller) loadList(ctx context.Context) error {
	c.mu.Lock()
	c.state.IONCON.TransactionStatus.IONCONList = true
	c.state.IONCON.Record.PK03 = ""
	c.refreshTransactionStatusLocked()
	c.touchLocked()
	c.mu.Unlock()

	resp, err := c.records.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.touchLocked()
	c.state.IONCON.TransactionStatus.IONCONList = false
	c.refreshTransactionStatusLocked()
	if err != nil {
		return c.reportCallLocked(err, service.ProgramExtension, service.TxListAlpha, mi.Request{"KPID": types.KPID})
	}
	rows := types.FromAlphaRows(types.FilterByKPID(resp.Items, types.KPID))
	c.state.IONCON.List = rows
	c.state.Grid.Height = grid.AdjustHeight(len(rows), grid.MaxListHeight)
	return nil
}

// OpenDetail loads the alpha and numeric records of key concurrently and
// opens the detail dialog once both have answered. A numeric failure is
// reported as a warning and leaves the numeric fields zero.
func (c *Controller) OpenDetail(ctx context.Context, key types.Key) error {
	c.mu.Lock()
	if err := c.requireReadyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state.IONCON.TransactionStatus.IONCONRecord = true
	c.refreshTransactionStatusLocked()
	c.touchLocked()
	c.mu.Unlock()

	var (
		g                errgroup.Group
		alpha, numeric   *mi.Response
		alphaErr, numErr error
	)
	g.Go(func() error {
		alpha, alphaErr = c.records.GetAlpha(ctx, key.PK01, key.PK02, key.PK03)
		return alphaErr
	})
	g.Go(func() error {
		numeric, numErr = c.records.GetNumeric(ctx, key.PK01, key.PK02, key.PK03)
		return numErr
	})
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.touchLocked()
	c.state.IONCON.TransactionStatus.IONCONRecord = false
	c.refreshTransactionStatusLocked()
	if alphaErr != nil {
		return c.reportCallLocked(alphaErr, service.ProgramExtension, service.TxGetAlpha, key.Fields())
	}

	rec := types.Record{KPID: types.KPID, Key: key}
	if !alpha.Empty() {
		rec = types.FromAlpha(alpha.Item)
	}
	if numErr != nil {
		e := mi.AsError(numErr, service.ProgramExtension, service.TxGetNumeric, key.Fields())
		c.status.Warn(fmt.Sprintf("Numeric values of %s could not be loaded: %s", key, e.ErrorMessage))
		c.log.Warn("numeric record", zap.String("key", key.String()), zap.Error(numErr))
	} else if !numeric.Empty() {
		rec.Numeric = types.DecodeNumeric(numeric.Item)
	}

	c.state.IONCON.Record = rec
	loaded := rec
	c.loaded = &loaded
	m, _ := LookupModal(ModalRecordDetail)
	c.state.Modal = &m
	return nil
}

// IsValid reports whether the open record may be saved. There are no
// field rules.
func IsValid(types.Record) bool { return true }

// Save writes the open record: the alpha part, then the numeric part. When
// the numeric write fails the alpha values loaded with the dialog are
// written back.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireReadyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	rec := c.state.IONCON.Record
	if !IsValid(rec) {
		c.banners[BannerError].Show("Invalid", "Invalid")
		c.touchLocked()
		c.mu.Unlock()
		return ErrInvalid
	}
	release, err := c.acquireLocked(rec.Key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	defer release()
	var previous *types.Alpha
	if c.loaded != nil && c.loaded.Key == rec.Key {
		a := c.loaded.Alpha
		previous = &a
	}
	c.state.IONCON.TransactionStatus.IONCONRecord = true
	c.refreshTransactionStatusLocked()
	c.touchLocked()
	c.mu.Unlock()

	alpha := rec.Alpha.Outgoing()
	if _, err := c.records.ChangeAlpha(ctx, rec.Key, alpha); err != nil {
		return c.recordFailed(err, service.TxChangeAlpha, rec.Key.Fields())
	}
	if _, err := c.records.ChangeNumeric(ctx, rec.Key, rec.Numeric); err != nil {
		if previous != nil {
			c.compensate(rec.Key, "restore", func() error {
				_, err := c.records.ChangeAlpha(ctx, rec.Key, *previous)
				return err
			})
		}
		return c.recordFailed(err, service.TxChangeNumeric, rec.Key.Fields())
	}

	c.mu.Lock()
	c.state.IONCON.TransactionStatus.IONCONRecord = false
	saved := rec
	saved.Alpha = alpha
	c.loaded = &saved
	c.touchLocked()
	c.mu.Unlock()
	return c.CloseModal(ctx)
}

// Add creates a record from the add form. PK01 is derived from PK02 and
// AL35, and a blank AL31 takes the AL30 text. When the numeric insert fails
// the alpha record is deleted again. In multiple-add mode the dialog stays
// open with cleared fields.
func (c *Controller) Add(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireReadyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	rec := c.state.IONCON.Record
	key := types.DeriveAddKey(rec)
	alpha := rec.Alpha
	if alpha.AL31 == "" {
		alpha.AL31 = alpha.AL30
	}
	alpha = alpha.Outgoing()
	release, err := c.acquireLocked(key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	defer release()
	multiple := c.state.IONCON.IsMultipleAdd
	c.banners[BannerError].Hide()
	c.state.IONCON.TransactionStatus.IONCONRecord = true
	c.refreshTransactionStatusLocked()
	c.touchLocked()
	c.mu.Unlock()

	if _, err := c.records.AddAlpha(ctx, key, alpha); err != nil {
		return c.recordFailed(err, service.TxAddAlpha, key.Fields())
	}
	if _, err := c.records.AddNumeric(ctx, key, rec.Numeric); err != nil {
		c.compensate(key, "remove", func() error {
			_, err := c.records.DeleteAlpha(ctx, key.PK01, key.PK02, key.PK03, rec.PK04)
			return err
		})
		return c.recordFailed(err, service.TxAddNumeric, key.Fields())
	}

	c.mu.Lock()
	c.state.IONCON.TransactionStatus.IONCONRecord = false
	c.touchLocked()
	c.mu.Unlock()
	if !multiple {
		return c.CloseModal(ctx)
	}
	c.ClearFields()
	return c.loadList(ctx)
}

// Delete removes the numeric and alpha records of the open record
// concurrently, then reloads the list and closes the dialog once. When only
// one half is deleted it is written back from the loaded record; if that is
// not possible the list is reloaded so it shows what is left.
func (c *Controller) Delete(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireReadyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	rec := c.state.IONCON.Record
	release, err := c.acquireLocked(rec.Key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	defer release()
	var loaded *types.Record
	if c.loaded != nil && c.loaded.Key == rec.Key {
		l := *c.loaded
		loaded = &l
	}
	c.state.IONCON.TransactionStatus.IONCONRecord = true
	c.refreshTransactionStatusLocked()
	c.touchLocked()
	c.mu.Unlock()

	var (
		g                errgroup.Group
		alphaErr, numErr error
	)
	g.Go(func() error {
		_, numErr = c.records.DeleteNumeric(ctx, rec.PK01, rec.PK02, rec.PK03, rec.PK04)
		return numErr
	})
	g.Go(func() error {
		_, alphaErr = c.records.DeleteAlpha(ctx, rec.PK01, rec.PK02, rec.PK03, rec.PK04)
		return alphaErr
	})
	if err := g.Wait(); err != nil {
		restored := c.restoreDeleted(ctx, rec.Key, loaded, alphaErr == nil, numErr == nil)
		first := c.deleteFailed(rec.Key, alphaErr, numErr)
		if !restored {
			_ = c.loadList(ctx)
		}
		return first
	}

	c.mu.Lock()
	c.state.IONCON.TransactionStatus.IONCONRecord = false
	c.loaded = nil
	c.touchLocked()
	c.mu.Unlock()
	return c.CloseModal(ctx)
}

// restoreDeleted writes back the half of a record that was deleted when the
// other half was not. It reports whether both halves exist again.
func (c *Controller) restoreDeleted(ctx context.Context, key types.Key, loaded *types.Record, alphaGone, numericGone bool) bool {
	if !alphaGone && !numericGone {
		return true
	}
	if loaded == nil {
		c.compensate(key, "restore", func() error {
			return errors.New("record was not loaded")
		})
		return false
	}
	ok := true
	if alphaGone {
		c.compensate(key, "restore", func() error {
			_, err := c.records.AddAlpha(ctx, key, loaded.Alpha.Outgoing())
			if err != nil {
				ok = false
			}
			return err
		})
	}
	if numericGone {
		c.compensate(key, "restore", func() error {
			_, err := c.records.AddNumeric(ctx, key, loaded.Numeric)
			if err != nil {
				ok = false
			}
			return err
		})
	}
	return ok
}

// deleteFailed reports the failed halves of a delete as one message.
func (c *Controller) deleteFailed(key types.Key, alphaErr, numErr error) error {
	var (
		messages []string
		diags    []string
		field    string
		first    *mi.Error
	)
	for _, f := range []struct {
		err error
		tx  string
	}{{alphaErr, service.TxDeleteAlpha}, {numErr, service.TxDeleteNumeric}} {
		if f.err == nil {
			continue
		}
		e := mi.AsError(f.err, service.ProgramExtension, f.tx, key.Fields())
		messages = append(messages, e.ErrorMessage)
		diags = append(diags, e.Diagnostic())
		if field == "" {
			field = e.ErrorField
		}
		if first == nil {
			first = e
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.myErrorLocked(strings.Join(diags, "; "), strings.Join(messages, "; "), field)
	c.touchLocked()
	return first
}

// recordFailed reports a failed write inside the record dialog.
func (c *Controller) recordFailed(err error, transaction string, req mi.Request) error {
	e := mi.AsError(err, service.ProgramExtension, transaction, req)
	c.log.Warn("record write failed",
		zap.String("transaction", e.Transaction),
		zap.String("code", e.ErrorCode),
		zap.String("message", e.ErrorMessage))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.myErrorLocked(e.Diagnostic(), e.ErrorMessage, e.ErrorField)
	c.touchLocked()
	return e
}

// compensate runs undo and reports when it fails too.
func (c *Controller) compensate(key types.Key, action string, undo func() error) {
	err := undo()
	if err == nil {
		c.log.Info("compensated partial write", zap.String("key", key.String()), zap.String("action", action))
		return
	}
	c.log.Error("compensation failed", zap.String("key", key.String()), zap.String("action", action), zap.Error(err))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Fail(fmt.Sprintf("Could not %s %s after a failed write: %s", action, key, mi.AsError(err, "", "", nil).ErrorMessage))
	c.touchLocked()
}

// OpenAdd resets the record to an empty IONCON record and opens the add
// dialog.
func (c *Controller) OpenAdd() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReadyLocked(); err != nil {
		return err
	}
	c.state.IONCON.Record = types.NewRecord()
	m, _ := LookupModal(ModalAddRecord)
	c.state.Modal = &m
	c.touchLocked()
	return nil
}

// ClearFields resets the key and description fields of the form.
func (c *Controller) ClearFields() {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &c.state.IONCON.Record
	r.KPID = types.KPID
	r.PK01, r.PK02, r.PK03, r.PK04 = "", "", "", ""
	r.AL30, r.AL31 = "", ""
	c.touchLocked()
}

// SetMultipleAdd toggles whether the add dialog stays open after an add.
func (c *Controller) SetMultipleAdd(multiple bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IONCON.IsMultipleAdd = multiple
	c.touchLocked()
}

// EditRecord applies a JSON patch of record fields to the open record.
func (c *Controller) EditRecord(patch []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.state.IONCON.Record
	if err := json.Unmarshal(patch, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.state.IONCON.Record = rec
	c.touchLocked()
	return nil
}

// OpenModal opens one of the informational dialogs.
func (c *Controller) OpenModal(name ModalName) error {
	m, err := LookupModal(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Modal = &m
	c.touchLocked()
	return nil
}

// CloseModal closes the open dialog: the key fields of the record are
// cleared, the myError banner is hidden and the list is reloaded.
func (c *Controller) CloseModal(ctx context.Context) error {
	c.mu.Lock()
	r := &c.state.IONCON.Record
	r.PK01, r.PK02, r.PK03, r.PK04 = "", "", "", ""
	c.state.Modal = nil
	c.banners[BannerMyError].Hide()
	reload := c.authorizedLocked()
	c.refreshTransactionStatusLocked()
	c.touchLocked()
	c.mu.Unlock()

	if !reload {
		return nil
	}
	return c.loadList(ctx)
}

// SelectRow marks the list row with key as selected.
func (c *Controller) SelectRow(key types.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.state.IONCON.List {
		if r.Key == key {
			row := r
			c.state.IONCON.SelectedRow = &row
			c.touchLocked()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

// AddMoreItems widens the rendered window of the list.
func (c *Controller) AddMoreItems() InfiniteScroll {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.InfiniteScroll.CurrentItems += c.state.InfiniteScroll.NumToAdd
	c.touchLocked()
	return c.state.InfiniteScroll
}
