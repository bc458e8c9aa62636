package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/barlinq/barlinq-core/internal/control"
	"github.com/barlinq/barlinq-core/internal/device"
	"github.com/barlinq/barlinq-core/internal/infrastructure/mqtt"
	"github.com/barlinq/barlinq-core/internal/irhub"
	"github.com/barlinq/barlinq-core/internal/learning"
	"github.com/barlinq/barlinq-core/internal/matrix"
)

const (
	// displayTopicParts is the part count of barlinq/display/{id}/set.
	displayTopicParts = 4

	// commandTimeout bounds a single dispatch, including pacing waits
	// and a fallback attempt.
	commandTimeout = 30 * time.Second

	// batchTimeout bounds a full fan-out, including sequential sweeps.
	batchTimeout = 2 * time.Minute

	// learnTimeout bounds a learning action; captures block for the
	// full window while the operator presses the remote.
	learnTimeout = 45 * time.Second

	// defaultHubStatusInterval is how often hub reachability is
	// republished.
	defaultHubStatusInterval = 30 * time.Second

	defaultQoS byte = 1
)

// Logger captures the logging calls the bridge makes.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageBus is the MQTT surface the bridge needs. Satisfied by
// *mqtt.Client.
type MessageBus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Commander executes one command against one display.
// Satisfied by *control.Arbiter.
type Commander interface {
	Dispatch(ctx context.Context, deviceID string, cmd control.Command, force device.Transport) control.Result
}

// BatchCommander fans a command out to many displays.
// Satisfied by *control.Dispatcher.
type BatchCommander interface {
	DispatchAll(ctx context.Context, deviceIDs []string, cmd control.Command, opts control.BatchOptions) control.BatchResult
}

// RouteSwitcher drives the crosspoint matrix. Satisfied by
// *matrix.Router.
type RouteSwitcher interface {
	Route(ctx context.Context, input, output int) error
	Routes() []matrix.Route
}

// DeviceReader reads the display registry. Satisfied by
// *device.Registry.
type DeviceReader interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	ListDevices(ctx context.Context) ([]device.Device, error)
}

// Learner drives the IR learning workflow. Satisfied by
// *learning.Workflow.
type Learner interface {
	AddCommand(ctx context.Context, deviceID, name, category string) (*learning.IRCommand, error)
	StartLearning(ctx context.Context, commandID string) (*learning.IRCommand, error)
	TestCommand(ctx context.Context, commandID string) (control.Result, error)
	TestAllCommands(ctx context.Context, deviceID string) (learning.TestReport, error)
	LoadFromTemplate(ctx context.Context, deviceID, templateName string) (learning.TemplateReport, error)
}

// HubLister reports registered IR hubs and their reachability.
// Satisfied by *irhub.Registry.
type HubLister interface {
	List() []irhub.Hub
}

// Options configures a Bridge.
type Options struct {
	Bus        MessageBus
	Arbiter    Commander
	Dispatcher BatchCommander
	Router     RouteSwitcher
	Devices    DeviceReader

	// Learner enables the learning topic when set. Optional.
	Learner Learner

	// Hubs enables retained hub status topics when set. Optional.
	Hubs HubLister

	// QoS for every publish and subscribe. Defaults to 1.
	QoS byte

	// HubStatusInterval is how often hub reachability is republished.
	// Defaults to 30s.
	HubStatusInterval time.Duration

	Logger Logger
}

// Bridge translates between the MQTT message bus and the control
// engine. All methods are safe for concurrent use.
type Bridge struct {
	bus        MessageBus
	arbiter    Commander
	dispatcher BatchCommander
	router     RouteSwitcher
	devices    DeviceReader
	learner    Learner
	hubs       HubLister

	qos         byte
	hubInterval time.Duration
	logger      Logger

	topics mqtt.Topics

	ctx       context.Context
	ctxCancel context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("bridge: message bus is required")
	}
	if opts.Arbiter == nil {
		return nil, fmt.Errorf("bridge: arbiter is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("bridge: dispatcher is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("bridge: router is required")
	}
	if opts.Devices == nil {
		return nil, fmt.Errorf("bridge: device reader is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		bus:         opts.Bus,
		arbiter:     opts.Arbiter,
		dispatcher:  opts.Dispatcher,
		router:      opts.Router,
		devices:     opts.Devices,
		learner:     opts.Learner,
		hubs:        opts.Hubs,
		qos:         opts.QoS,
		hubInterval: opts.HubStatusInterval,
		logger:      opts.Logger,
		ctx:         ctx,
		ctxCancel:   cancel,
		done:        make(chan struct{}),
	}
	if b.qos == 0 {
		b.qos = defaultQoS
	}
	if b.hubInterval <= 0 {
		b.hubInterval = defaultHubStatusInterval
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	return b, nil
}

// Start subscribes to command topics, publishes the current retained
// state, and begins the hub status loop.
func (b *Bridge) Start(ctx context.Context) error {
	// The display wildcard also matches barlinq/display/all/set, so a
	// single subscription carries both single and batch commands.
	displayTopic := b.topics.AllDisplayCommands()
	if err := b.bus.Subscribe(displayTopic, b.qos, b.handleDisplayMessage); err != nil {
		return fmt.Errorf("subscribe to display commands: %w", err)
	}
	b.logger.Info("subscribed to display commands", "topic", displayTopic)

	matrixTopic := b.topics.MatrixCommand()
	if err := b.bus.Subscribe(matrixTopic, b.qos, b.handleMatrixMessage); err != nil {
		return fmt.Errorf("subscribe to matrix commands: %w", err)
	}
	b.logger.Info("subscribed to matrix commands", "topic", matrixTopic)

	if b.learner != nil {
		learningTopic := b.topics.LearningCommand()
		if err := b.bus.Subscribe(learningTopic, b.qos, b.handleLearningMessage); err != nil {
			return fmt.Errorf("subscribe to learning commands: %w", err)
		}
		b.logger.Info("subscribed to learning commands", "topic", learningTopic)
	}

	b.publishAllStates(ctx)
	b.publishAllRoutes()
	b.publishHubStatuses()

	if b.hubs != nil {
		b.wg.Add(1)
		go b.hubStatusLoop()
	}

	b.logger.Info("bridge started")
	return nil
}

// Stop cancels in-flight dispatches and waits for handlers to drain.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
}

// handleDisplayMessage routes barlinq/display/{id}/set payloads.
// The "all" device ID selects batch fan-out.
func (b *Bridge) handleDisplayMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != displayTopicParts {
		return fmt.Errorf("bridge: malformed display topic %q", topic)
	}
	deviceID := parts[2]

	if deviceID == "all" {
		return b.handleBatchCommand(payload)
	}
	return b.handleDisplayCommand(deviceID, payload)
}

func (b *Bridge) handleDisplayCommand(deviceID string, payload []byte) error {
	var req CommandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logger.Error("invalid command payload", "device_id", deviceID, "error", err)
		return fmt.Errorf("parse command: %w", err)
	}

	cmd := control.Command(req.Command)
	if !cmd.IsValid() {
		b.publishResult(deviceID, ResultMessage{
			ID:          req.ID,
			DeviceID:    deviceID,
			Command:     req.Command,
			Success:     false,
			Message:     fmt.Sprintf("unknown command %q", req.Command),
			CompletedAt: time.Now().UTC(),
		})
		return nil
	}

	force, err := parseTransport(req.Transport)
	if err != nil {
		b.publishResult(deviceID, ResultMessage{
			ID:          req.ID,
			DeviceID:    deviceID,
			Command:     req.Command,
			Success:     false,
			Message:     err.Error(),
			CompletedAt: time.Now().UTC(),
		})
		return nil
	}

	b.logger.Info("received command",
		"device_id", deviceID,
		"command", req.Command,
		"source", req.Source)

	// Dispatch off the delivery goroutine; pacing and fallback can
	// hold a command for seconds.
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
		defer cancel()

		result := b.arbiter.Dispatch(ctx, deviceID, cmd, force)
		b.publishResult(deviceID, newResultMessage(req.ID, result))
		if result.Success {
			b.publishState(deviceID)
		}
	}()
	return nil
}

func (b *Bridge) handleBatchCommand(payload []byte) error {
	var req BatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logger.Error("invalid batch payload", "error", err)
		return fmt.Errorf("parse batch: %w", err)
	}

	cmd := control.Command(req.Command)
	if !cmd.IsValid() {
		b.publishBatchSummary(BatchSummaryMessage{
			ID:          req.ID,
			Command:     req.Command,
			CompletedAt: time.Now().UTC(),
		})
		b.logger.Warn("batch rejected", "command", req.Command, "reason", "unknown command")
		return nil
	}

	force, err := parseTransport(req.Transport)
	if err != nil {
		b.logger.Warn("batch rejected", "command", req.Command, "reason", err.Error())
		return nil
	}

	b.logger.Info("received batch command",
		"command", req.Command,
		"devices", len(req.Devices),
		"sequential", req.Sequential,
		"source", req.Source)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(b.ctx, batchTimeout)
		defer cancel()

		targets := req.Devices
		if len(targets) == 0 {
			devices, err := b.devices.ListDevices(ctx)
			if err != nil {
				b.logger.Error("failed to list displays for batch", "error", err)
				return
			}
			targets = make([]string, 0, len(devices))
			for _, dev := range devices {
				targets = append(targets, dev.ID)
			}
		}

		batch := b.dispatcher.DispatchAll(ctx, targets, cmd, control.BatchOptions{
			Sequential: req.Sequential,
			Delay:      time.Duration(req.DelayMs) * time.Millisecond,
			Force:      force,
		})

		b.publishBatchSummary(newBatchSummary(req.ID, req.Command, batch))
		for _, result := range batch.Results {
			if result.Success {
				b.publishState(result.DeviceID)
			}
		}
	}()
	return nil
}

// handleMatrixMessage routes barlinq/matrix/set payloads. The retained
// route topic is only republished when the switch succeeds, so it
// always mirrors actual crosspoint state.
func (b *Bridge) handleMatrixMessage(_ string, payload []byte) error {
	var req MatrixRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logger.Error("invalid matrix payload", "error", err)
		return fmt.Errorf("parse matrix request: %w", err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
		defer cancel()

		if err := b.router.Route(ctx, req.Input, req.Output); err != nil {
			b.logger.Error("matrix switch failed",
				"input", req.Input,
				"output", req.Output,
				"error", err)
			return
		}

		b.publishRoute(matrix.Route{
			Output:    req.Output,
			Input:     req.Input,
			UpdatedAt: time.Now().UTC(),
		})
	}()
	return nil
}

// handleLearningMessage routes barlinq/learning/set payloads to the
// learning workflow. Every action gets a result message, including
// rejected ones, so front-ends never wait on silence.
func (b *Bridge) handleLearningMessage(_ string, payload []byte) error {
	var req LearningRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logger.Error("invalid learning payload", "error", err)
		return fmt.Errorf("parse learning request: %w", err)
	}

	b.logger.Info("received learning action",
		"action", req.Action,
		"device_id", req.DeviceID,
		"command_id", req.CommandID)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(b.ctx, learnTimeout)
		defer cancel()

		msg := LearningResultMessage{
			ID:          req.ID,
			Action:      req.Action,
			CompletedAt: time.Now().UTC(),
		}

		switch req.Action {
		case "add":
			cmd, err := b.learner.AddCommand(ctx, req.DeviceID, req.Name, req.Category)
			msg.Command, msg.Success = cmd, err == nil
			if err != nil {
				msg.Error = err.Error()
			}
		case "learn":
			cmd, err := b.learner.StartLearning(ctx, req.CommandID)
			msg.Command, msg.Success = cmd, err == nil
			if err != nil {
				msg.Error = err.Error()
			}
		case "test":
			result, err := b.learner.TestCommand(ctx, req.CommandID)
			if err != nil {
				msg.Error = err.Error()
			} else {
				test := newResultMessage(req.ID, result)
				msg.Test, msg.Success = &test, result.Success
			}
		case "test_all":
			report, err := b.learner.TestAllCommands(ctx, req.DeviceID)
			if err != nil {
				msg.Error = err.Error()
			} else {
				msg.TestReport, msg.Success = &report, report.Failed == 0
			}
		case "template":
			report, err := b.learner.LoadFromTemplate(ctx, req.DeviceID, req.Template)
			if err != nil {
				msg.Error = err.Error()
			} else {
				msg.TemplateReport, msg.Success = &report, true
			}
		default:
			msg.Error = fmt.Sprintf("unknown action %q", req.Action)
		}

		msg.CompletedAt = time.Now().UTC()
		b.publishJSON(b.topics.LearningResult(), msg, false)
	}()
	return nil
}

func (b *Bridge) publishResult(deviceID string, msg ResultMessage) {
	b.publishJSON(b.topics.DisplayResult(deviceID), msg, false)
}

func (b *Bridge) publishBatchSummary(msg BatchSummaryMessage) {
	b.publishJSON(b.topics.BatchResult(), msg, false)
}

// publishState republishes a display's retained state topic from the
// registry's power-state cache.
func (b *Bridge) publishState(deviceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	dev, err := b.devices.GetDevice(ctx, deviceID)
	if err != nil {
		b.logger.Warn("state publish skipped", "device_id", deviceID, "error", err)
		return
	}
	b.publishJSON(b.topics.DisplayState(deviceID), newStateMessage(dev), true)
}

func (b *Bridge) publishAllStates(ctx context.Context) {
	devices, err := b.devices.ListDevices(ctx)
	if err != nil {
		b.logger.Warn("initial state publish skipped", "error", err)
		return
	}
	for i := range devices {
		dev := devices[i]
		b.publishJSON(b.topics.DisplayState(dev.ID), newStateMessage(&dev), true)
	}
}

func (b *Bridge) publishRoute(route matrix.Route) {
	b.publishJSON(b.topics.MatrixRoute(route.Output), newRouteMessage(route), true)
}

func (b *Bridge) publishAllRoutes() {
	for _, route := range b.router.Routes() {
		b.publishRoute(route)
	}
}

func (b *Bridge) publishHubStatuses() {
	if b.hubs == nil {
		return
	}
	for _, hub := range b.hubs.List() {
		b.publishJSON(b.topics.HubStatus(hub.ID), newHubStatusMessage(hub), true)
	}
}

func (b *Bridge) hubStatusLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.hubInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.publishHubStatuses()
		}
	}
}

func (b *Bridge) publishJSON(topic string, msg any, retained bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshal failed", "topic", topic, "error", err)
		return
	}
	if err := b.bus.Publish(topic, payload, b.qos, retained); err != nil {
		b.logger.Error("publish failed", "topic", topic, "error", err)
	}
}

// parseTransport maps a wire transport string onto a device transport.
// Empty input selects automatic arbitration.
func parseTransport(s string) (device.Transport, error) {
	if s == "" {
		return "", nil
	}
	for _, t := range device.AllTransports() {
		if device.Transport(s) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transport %q", s)
}
