package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/mi"
)

// reportCallLocked shows a failed transaction on the error banner and the
// status bar and returns it as an *mi.Error.
func (c *Controller) reportCallLocked(err error, program, transaction string, req mi.Request) *mi.Error {
	e := mi.AsError(err, program, transaction, req)
	diag := e.Diagnostic()
	c.banners[BannerError].Show(diag, e.ErrorMessage)
	c.status.Fail(diag + " " + e.ErrorMessage)
	c.log.Warn("transaction failed",
		zap.String("program", e.Program),
		zap.String("transaction", e.Transaction),
		zap.String("code", e.ErrorCode),
		zap.String("message", e.ErrorMessage))
	return e
}

// myErrorLocked reports a failed save, add or delete inside the record
// dialog. The AL30 field is presented by its label; the status bar gets the
// call diagnostic with the message.
func (c *Controller) myErrorLocked(diag, message, field string) {
	c.state.IONCON.TransactionStatus.IONCONRecord = false
	c.refreshTransactionStatusLocked()
	if field == "AL30" {
		field = "Description"
	}
	c.banners[BannerMyError].Show(message, field)
	c.status.Fail(diag + " " + message)
}

// failLocked posts an error entry to the status bar and the log.
func (c *Controller) failLocked(message string, err error) {
	c.log.Error(strings.TrimSpace(message), zap.Error(err))
	c.status.Fail(message + err.Error())
}

// ShowBanner displays message on the banner category.
func (c *Controller) ShowBanner(category, message string, details ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.banners[category]
	if !ok {
		return fmt.Errorf("%w: banner %q", ErrUnknownOption, category)
	}
	b.Show(message, details...)
	c.touchLocked()
	return nil
}

// HideBanner dismisses the banner category.
func (c *Controller) HideBanner(category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.banners[category]
	if !ok {
		return fmt.Errorf("%w: banner %q", ErrUnknownOption, category)
	}
	b.Hide()
	c.touchLocked()
	return nil
}

// RemoveStatus removes the status bar entry at display index (0 is newest).
func (c *Controller) RemoveStatus(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.status.RemoveAt(index)
	c.touchLocked()
	return removed
}

// ClearStatus empties and collapses the status bar.
func (c *Controller) ClearStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Clear()
	c.touchLocked()
}

// SetStatusCollapsed expands or collapses the status bar.
func (c *Controller) SetStatusCollapsed(collapsed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.SetCollapsed(collapsed)
	c.touchLocked()
}
