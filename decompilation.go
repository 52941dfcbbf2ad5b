package retdec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// apiConnection is the part of Connection a Decompilation needs.
type apiConnection interface {
	SendGetRequestWithContext(ctx context.Context, path string, params map[string]string, out any) error
	GetFileWithContext(ctx context.Context, path string, params map[string]string) (*File, error)
}

var _ apiConnection = (*Connection)(nil)

// Decompilation is a decompilation running on the service. It is not safe
// for concurrent use; the Connection behind it is.
type Decompilation struct {
	id           string
	conn         apiConnection
	waitInterval time.Duration
	logger       Logger

	// lastStatus is the baseline for change detection in WaitUntilFinished.
	// nil until the first status has been observed.
	lastStatus *Status
}

func newDecompilation(id string, conn apiConnection, waitInterval time.Duration, logger Logger) *Decompilation {
	return &Decompilation{
		id:           id,
		conn:         conn,
		waitInterval: waitInterval,
		logger:       logger,
	}
}

func (d *Decompilation) ID() string {
	return d.id
}

// WaitInterval is the pause between status checks used by WaitUntilFinished
// when WaitOptions.Interval is not set.
func (d *Decompilation) WaitInterval() time.Duration {
	return d.waitInterval
}

// LastStatus returns the snapshot most recently observed by
// WaitUntilFinished. Callbacks can use it instead of fetching a new status.
func (d *Decompilation) LastStatus() (Status, bool) {
	if d.lastStatus == nil {
		return Status{}, false
	}
	return *d.lastStatus, true
}

// GetStatus fetches the current status.
func (d *Decompilation) GetStatus() (Status, error) {
	return d.GetStatusWithContext(context.Background())
}

// GetStatusWithContext fetches the current status with a caller-supplied context.
func (d *Decompilation) GetStatusWithContext(ctx context.Context) (Status, error) {
	var status Status
	if err := d.conn.SendGetRequestWithContext(ctx, "/"+d.id+"/status", nil, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// GetCompletion fetches the current status and returns its completion
// percentage (0-100).
func (d *Decompilation) GetCompletion() (int, error) {
	return d.GetCompletionWithContext(context.Background())
}

// GetCompletionWithContext is GetCompletion with a caller-supplied context.
func (d *Decompilation) GetCompletionWithContext(ctx context.Context) (int, error) {
	status, err := d.GetStatusWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return status.Completion, nil
}

// GetOutputHLL downloads the decompiled high-level-language output. The
// caller owns the returned File.
func (d *Decompilation) GetOutputHLL() (*File, error) {
	return d.GetOutputHLLWithContext(context.Background())
}

// GetOutputHLLWithContext is GetOutputHLL with a caller-supplied context.
func (d *Decompilation) GetOutputHLLWithContext(ctx context.Context) (*File, error) {
	return d.conn.GetFileWithContext(ctx, "/"+d.id+"/outputs/hll", nil)
}

// SaveOutputHLL downloads the decompiled output and writes it into dir,
// which is created when missing. An empty dir means the working directory.
// The file keeps the name the service announced, or <id>.c without one.
// It returns the path written.
func (d *Decompilation) SaveOutputHLL(dir string) (string, error) {
	return d.SaveOutputHLLWithContext(context.Background(), dir)
}

// SaveOutputHLLWithContext is SaveOutputHLL with a caller-supplied context.
func (d *Decompilation) SaveOutputHLLWithContext(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}

	file, err := d.GetOutputHLLWithContext(ctx)
	if err != nil {
		return "", err
	}
	defer file.Close()

	name := file.Name()
	if name == "" {
		name = d.id + ".c"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	_, err = file.WriteTo(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write output file %s: %w", path, err)
	}
	return path, nil
}

// WaitUntilFinished blocks until the decompilation finishes.
//
// The callback runs on every status change after the first observation and
// once more when the decompilation finishes. A failed decompilation is
// reported according to opts.OnFailure.
func (d *Decompilation) WaitUntilFinished(opts WaitOptions) error {
	return d.WaitUntilFinishedWithContext(context.Background(), opts)
}

// WaitUntilFinishedWithContext is WaitUntilFinished with a caller-supplied
// context, which is checked before every status request and during the
// pauses between them.
func (d *Decompilation) WaitUntilFinishedWithContext(ctx context.Context, opts WaitOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	interval := d.waitInterval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("decompilation %s wait cancelled: %w", d.id, err)
		}

		status, err := d.GetStatusWithContext(ctx)
		if err != nil {
			return err
		}

		if status.Finished {
			d.lastStatus = &status
			d.logf("decompilation %s finished (succeeded=%t)", d.id, status.Succeeded)
			if opts.Callback != nil {
				opts.Callback(d)
			}
			if status.Succeeded {
				return nil
			}
			return opts.OnFailure.apply(d.id, status.Error)
		}

		changed := d.lastStatus != nil && !d.lastStatus.Equal(status)
		d.lastStatus = &status
		if changed {
			d.logf("decompilation %s status changed (completion=%d%%)", d.id, status.Completion)
			if opts.Callback != nil {
				opts.Callback(d)
			}
		}

		if err := sleepWithContext(ctx, interval); err != nil {
			return fmt.Errorf("decompilation %s wait cancelled: %w", d.id, err)
		}
	}
}

func (d *Decompilation) String() string {
	return fmt.Sprintf("Decompilation(id=%s)", d.id)
}

func (d *Decompilation) logf(format string, args ...any) {
	if d.logger == nil {
		return
	}
	d.logger.Printf(format, args...)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
