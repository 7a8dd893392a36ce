package app

import (
	"context"
	"fmt"

	"github.com/matthewbaird/ioncon/internal/grid"
	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/service"
	"github.com/matthewbaird/ioncon/internal/types"
)

// Lookup kinds.
const (
	LookupDivisions  = "divisions"
	LookupWarehouses = "warehouses"
	LookupFacilities = "facilities"
	LookupCustomers  = "customers"
	LookupTables     = "tables"
)

// Lookup lists the options of a selection field for the current user.
// Failures are shown on the error banner and the status bar.
func (c *Controller) Lookup(ctx context.Context, kind string) ([]mi.Record, error) {
	c.mu.Lock()
	if err := c.requireReadyLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	u := c.state.UserContext
	division := c.state.GlobalSelection.Division.Selected
	tables := kind == LookupTables
	if tables {
		c.state.GlobalSelection.TransactionStatus.IONCONTableList = true
		c.refreshTransactionStatusLocked()
		c.touchLocked()
	}
	c.mu.Unlock()

	var (
		resp        *mi.Response
		err         error
		program, tx string
		req         mi.Request
	)
	switch kind {
	case LookupDivisions:
		program, tx, req = service.ProgramDivision, service.TxListDivisions, mi.Request{"CONO": u.Company, "DIVI": division}
		resp, err = c.records.Divisions(ctx, u.Company, division)
	case LookupWarehouses:
		program, tx, req = service.ProgramWarehouse, service.TxListWarehouse, mi.Request{"CONO": u.Company}
		resp, err = c.records.Warehouses(ctx, u.Company)
	case LookupFacilities:
		program, tx, req = service.ProgramFacility, service.TxListFacility, mi.Request{"CONO": u.Company, "DIVI": division}
		resp, err = c.records.Facilities(ctx, u.Company, division)
	case LookupCustomers:
		program, tx, req = service.ProgramCustomer, service.TxListCustomers, mi.Request{"CONO": u.Company}
		resp, err = c.records.Customers(ctx, u.Company)
	case LookupTables:
		program, tx, req = service.ProgramExtension, service.TxListAlpha, mi.Request{"KPID": types.KPID}
		resp, err = c.records.TableNames(ctx)
	default:
		return nil, fmt.Errorf("%w: lookup %q", ErrUnknownOption, kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tables {
		c.state.GlobalSelection.TransactionStatus.IONCONTableList = false
		c.refreshTransactionStatusLocked()
		c.touchLocked()
	}
	if err != nil {
		e := c.reportCallLocked(err, program, tx, req)
		c.touchLocked()
		return nil, e
	}
	return resp.Items, nil
}

// GridEvent handles a callback of the list grid. Layout changes are saved;
// rendering completion restores the saved layout; a row selection also
// selects the row.
func (c *Controller) GridEvent(ctx context.Context, name string, event grid.EventType, st grid.State, row *types.Key) error {
	if name != grid.ListName {
		return fmt.Errorf("%w: grid %q", ErrUnknownOption, name)
	}
	if !event.Known() {
		return fmt.Errorf("%w: grid event %q", ErrUnknownOption, event)
	}
	if event == grid.RenderingComplete {
		saved, ok, err := c.grids.Restore(ctx, name)
		if err != nil || !ok {
			return err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		height := c.state.Grid.Height
		c.state.Grid = grid.Apply(c.state.Grid, saved)
		c.state.Grid.Height = height
		c.touchLocked()
		return nil
	}
	if err := c.grids.Save(ctx, name, st); err != nil {
		return err
	}
	c.mu.Lock()
	height := c.state.Grid.Height
	c.state.Grid = grid.Apply(c.state.Grid, st)
	c.state.Grid.Height = height
	c.touchLocked()
	c.mu.Unlock()
	if event == grid.RowSelectionChanged && row != nil {
		return c.SelectRow(*row)
	}
	return nil
}

// GridState returns the saved layout of the grid, or the current one.
func (c *Controller) GridState(ctx context.Context, name string) (grid.State, error) {
	if name != grid.ListName {
		return grid.State{}, fmt.Errorf("%w: grid %q", ErrUnknownOption, name)
	}
	st, ok, err := c.grids.Restore(ctx, name)
	if err != nil {
		return grid.State{}, err
	}
	if ok {
		return st, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return grid.StateOf(c.state.Grid), nil
}

// CopyCells renders selected list cells as clipboard text. Rows are
// addressed by their key ("PK01/PK02/PK03").
func (c *Controller) CopyCells(cells []grid.CellRef) string {
	c.mu.Lock()
	byKey := make(map[string]types.Record, len(c.state.IONCON.List))
	for _, r := range c.state.IONCON.List {
		byKey[r.Key.String()] = r
	}
	c.mu.Unlock()
	return grid.Copy(cells, func(row, column string) (string, bool) {
		r, ok := byKey[row]
		if !ok {
			return "", false
		}
		return r.Value(column)
	})
}
