package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/barlinq/barlinq-core/internal/control"
	"github.com/barlinq/barlinq-core/internal/device"
	"github.com/barlinq/barlinq-core/internal/irhub"
)

// Logger captures the logging calls the workflow makes.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// DeviceGetter resolves device records. Implemented by the device
// registry.
type DeviceGetter interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
}

// HubControl is the hub registry surface the workflow needs: status
// checks before any hardware call, and capture mode during one.
type HubControl interface {
	Get(id string) (*irhub.Hub, error)
	Probe(ctx context.Context, hubID string) (irhub.Status, error)
	Learn(ctx context.Context, hubID string, port int, window time.Duration) (string, error)
}

// Tester dispatches a command for test playback. Implemented by the
// command arbiter.
type Tester interface {
	Dispatch(ctx context.Context, deviceID string, cmd control.Command, force device.Transport) control.Result
}

const defaultCaptureWindow = 20 * time.Second

// Workflow drives the IR learning lifecycle: reserve a named
// placeholder, capture a code from a physical remote through the hub's
// learning sensor, and validate learned codes by playing them back.
//
// One capture session per device may be in flight at a time; different
// devices learn concurrently on their own hub ports.
type Workflow struct {
	store   *Store
	devices DeviceGetter
	hubs    HubControl
	tester  Tester

	window time.Duration
	logger Logger

	mu       sync.Mutex
	inFlight map[string]bool // device id -> capture in progress
}

// WorkflowOptions configures a Workflow.
type WorkflowOptions struct {
	Store   *Store
	Devices DeviceGetter
	Hubs    HubControl
	Tester  Tester

	// CaptureWindow bounds one learning session. Defaults to 20s.
	CaptureWindow time.Duration

	Logger Logger
}

// NewWorkflow creates an IR learning workflow.
func NewWorkflow(opts WorkflowOptions) *Workflow {
	w := &Workflow{
		store:    opts.Store,
		devices:  opts.Devices,
		hubs:     opts.Hubs,
		tester:   opts.Tester,
		window:   opts.CaptureWindow,
		logger:   opts.Logger,
		inFlight: make(map[string]bool),
	}
	if w.window <= 0 {
		w.window = defaultCaptureWindow
	}
	if w.logger == nil {
		w.logger = noopLogger{}
	}
	return w
}

// AddCommand reserves a named placeholder for the device.
func (w *Workflow) AddCommand(ctx context.Context, deviceID, name, category string) (*IRCommand, error) {
	if _, err := w.devices.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	return w.store.AddCommand(ctx, deviceID, name, category)
}

// StartLearning captures a code for the command from a physical remote.
// It blocks for up to the capture window. On success the command is
// Learned and persisted; on a missed window or hub failure the command
// remains a Placeholder for retry and the attempt's error is returned.
//
// Configuration gaps fail before any hardware call: HubNotConfigured
// when the device has no hub assignment, ErrHubOffline when the hub is
// not reachable.
func (w *Workflow) StartLearning(ctx context.Context, commandID string) (*IRCommand, error) {
	cmd, err := w.store.GetCommand(ctx, commandID)
	if err != nil {
		return nil, err
	}

	dev, err := w.devices.GetDevice(ctx, cmd.DeviceID)
	if err != nil {
		return nil, err
	}
	if dev.HubID == nil {
		return nil, device.ErrHubNotConfigured
	}

	hub, err := w.hubs.Get(*dev.HubID)
	if err != nil {
		return nil, err
	}
	status := hub.Status
	if status == irhub.StatusUnknown {
		if status, err = w.hubs.Probe(ctx, hub.ID); err != nil {
			return nil, err
		}
	}
	if status != irhub.StatusOnline {
		return nil, fmt.Errorf("%w: hub %s", irhub.ErrHubOffline, hub.ID)
	}

	if !w.acquire(dev.ID) {
		return nil, fmt.Errorf("%w: device %s", ErrLearningInProgress, dev.ID)
	}
	defer w.release(dev.ID)

	w.logger.Info("learning started",
		"device_id", dev.ID, "command", cmd.Name, "hub_id", hub.ID, "port", dev.HubPort)

	code, err := w.hubs.Learn(ctx, hub.ID, dev.HubPort, w.window)
	if err != nil {
		// The command stays a placeholder; this attempt failed.
		w.logger.Warn("learning failed",
			"device_id", dev.ID, "command", cmd.Name, "error", err)
		cmd.State = StateFailed
		return cmd, err
	}

	if err := w.store.SaveLearnedCode(ctx, cmd.ID, code); err != nil {
		return nil, err
	}
	return w.store.GetCommand(ctx, cmd.ID)
}

// TestCommand plays a learned code back through the normal dispatch
// path, forced to IR. The command's state is never changed by a test.
func (w *Workflow) TestCommand(ctx context.Context, commandID string) (control.Result, error) {
	cmd, err := w.store.GetCommand(ctx, commandID)
	if err != nil {
		return control.Result{}, err
	}
	if !cmd.Learned() {
		return control.Result{}, fmt.Errorf("%w: %s", ErrNotLearned, cmd.Name)
	}

	result := w.tester.Dispatch(ctx, cmd.DeviceID, canonical(cmd.Name), device.TransportIR)
	return result, nil
}

// TestReport summarises a TestAllCommands sweep.
type TestReport struct {
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Total   int          `json:"total"`
	Details []TestDetail `json:"details"`
}

// TestDetail is one command's outcome within a sweep.
type TestDetail struct {
	CommandID string `json:"command_id"`
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// TestAllCommands plays every learned command for the device back, one
// at a time to avoid hub contention. Placeholders are skipped, not
// counted as failures.
func (w *Workflow) TestAllCommands(ctx context.Context, deviceID string) (TestReport, error) {
	commands, err := w.store.ListCommands(ctx, deviceID)
	if err != nil {
		return TestReport{}, err
	}

	var report TestReport
	for _, cmd := range commands {
		if !cmd.Learned() {
			continue
		}
		if ctx.Err() != nil {
			return report, fmt.Errorf("sweep cancelled: %w", ctx.Err())
		}

		result := w.tester.Dispatch(ctx, deviceID, canonical(cmd.Name), device.TransportIR)
		report.Total++
		if result.Success {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Details = append(report.Details, TestDetail{
			CommandID: cmd.ID,
			Name:      cmd.Name,
			Success:   result.Success,
			Message:   result.Message,
		})
	}
	return report, nil
}

// TemplateReport lists what a bulk import did per entry.
type TemplateReport struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// LoadFromTemplate reserves placeholders for every entry in the named
// template whose name is not already taken on the device. Existing
// commands are skipped and reported, never overwritten.
func (w *Workflow) LoadFromTemplate(ctx context.Context, deviceID, templateName string) (TemplateReport, error) {
	entries, ok := Template(templateName)
	if !ok {
		return TemplateReport{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateName)
	}
	if _, err := w.devices.GetDevice(ctx, deviceID); err != nil {
		return TemplateReport{}, err
	}

	var report TemplateReport
	for _, entry := range entries {
		_, err := w.store.AddCommand(ctx, deviceID, entry.Name, entry.Category)
		switch {
		case err == nil:
			report.Created = append(report.Created, entry.Name)
		case errors.Is(err, ErrDuplicateName):
			report.Skipped = append(report.Skipped, entry.Name)
		default:
			return report, err
		}
	}
	w.logger.Info("template loaded",
		"device_id", deviceID, "template", templateName,
		"created", len(report.Created), "skipped", len(report.Skipped))
	return report, nil
}

func (w *Workflow) acquire(deviceID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[deviceID] {
		return false
	}
	w.inFlight[deviceID] = true
	return true
}

func (w *Workflow) release(deviceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, deviceID)
}

// canonical normalises a stored command name for dispatch.
func canonical(name string) control.Command {
	return control.Command(strings.ToLower(strings.TrimSpace(name)))
}
