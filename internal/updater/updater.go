package updater

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PhiFever/vision-bridge/internal/config"
	"github.com/PhiFever/vision-bridge/internal/detector"
	"github.com/PhiFever/vision-bridge/internal/logger"
	"github.com/PhiFever/vision-bridge/pkg/screenshot"
)

// DetectorResult represents the result from a detector
type DetectorResult struct {
	DetectorName string
	Result       any
	Error        error
	Timestamp    time.Time
}

// Statistics is a snapshot of the loop counters
type Statistics struct {
	Running        bool
	UpdateCount    uint64
	CaptureErrors  uint64
	LastUpdateTime time.Time
}

// Updater coordinates all detectors and manages the detection loop
type Updater struct {
	interval time.Duration
	registry *detector.DetectorRegistry
	capturer screenshot.Capturer

	// Channels
	resultChan chan DetectorResult
	stopChan   chan struct{}
	doneChan   chan struct{}

	// State
	running bool
	mu      sync.RWMutex

	// Statistics
	updateCount    uint64
	captureErrors  uint64
	lastUpdateTime time.Time

	// Latest result per detector, also used to avoid duplicate logging
	lastResults map[string]DetectorResult
	lastStrings map[string]string
	resultsMu   sync.Mutex
}

// NewUpdater creates a new updater reading frames from capturer
func NewUpdater(cfg *config.Config, registry *detector.DetectorRegistry, capturer screenshot.Capturer) *Updater {
	return &Updater{
		interval:    time.Duration(cfg.UpdateInterval * float64(time.Second)),
		registry:    registry,
		capturer:    capturer,
		resultChan:  make(chan DetectorResult, 100),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		lastResults: make(map[string]DetectorResult),
		lastStrings: make(map[string]string),
	}
}

// Start starts the updater loop
func (u *Updater) Start(ctx context.Context) error {
	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return errors.New("updater is already running")
	}
	if u.interval <= 0 {
		u.mu.Unlock()
		return fmt.Errorf("invalid update interval %v", u.interval)
	}
	u.running = true
	u.mu.Unlock()

	logger.Info("[Updater] Starting...")

	// The processor exits once the loop has closed resultChan
	go u.processResults()
	go u.detectionLoop(ctx)

	logger.Info("[Updater] Started successfully")
	return nil
}

// Stop stops the updater and waits for the loop to finish
func (u *Updater) Stop() error {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return errors.New("updater is not running")
	}
	u.running = false
	u.mu.Unlock()

	logger.Info("[Updater] Stopping...")

	close(u.stopChan)
	<-u.doneChan

	logger.Info("[Updater] Stopped successfully")
	return nil
}

// Done is closed when the detection loop has exited, whether through Stop or
// context cancellation
func (u *Updater) Done() <-chan struct{} {
	return u.doneChan
}

// IsRunning returns whether the updater is running
func (u *Updater) IsRunning() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.running
}

// detectionLoop runs the main detection loop
func (u *Updater) detectionLoop(ctx context.Context) {
	defer func() {
		u.mu.Lock()
		u.running = false
		u.mu.Unlock()
		close(u.resultChan)
		close(u.doneChan)
	}()

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	logger.Infof("[Updater] Detection loop started (interval: %v)", u.interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Updater] Context cancelled, stopping detection loop")
			return

		case <-u.stopChan:
			logger.Info("[Updater] Stop signal received, stopping detection loop")
			return

		case <-ticker.C:
			u.RunOnce(ctx)
		}
	}
}

// RunOnce captures one frame and runs every enabled detector on it
func (u *Updater) RunOnce(ctx context.Context) {
	img, err := u.capturer.Capture(ctx)
	if err != nil {
		u.mu.Lock()
		u.captureErrors++
		u.mu.Unlock()
		logger.Errorf("[Updater] Failed to capture screen: %v", err)
		return
	}

	// Run detectors concurrently
	var wg sync.WaitGroup
	for _, d := range u.registry.GetAll() {
		if !d.IsEnabled() {
			continue
		}

		wg.Add(1)
		go func(det detector.Detector) {
			defer wg.Done()

			result, err := det.Detect(ctx, img)

			select {
			case u.resultChan <- DetectorResult{
				DetectorName: det.Name(),
				Result:       result,
				Error:        err,
				Timestamp:    time.Now(),
			}:
			default:
				logger.Warningf("[Updater] Result channel full, dropping result from %s", det.Name())
			}
		}(d)
	}
	wg.Wait()

	u.mu.Lock()
	u.updateCount++
	u.lastUpdateTime = time.Now()
	u.mu.Unlock()
}

// processResults processes detector results until the channel is closed
func (u *Updater) processResults() {
	logger.Info("[Updater] Result processor started")

	for result := range u.resultChan {
		u.handleResult(result)
	}

	logger.Info("[Updater] Result processor stopped")
}

// handleResult records a single detector result
func (u *Updater) handleResult(result DetectorResult) {
	if result.Error != nil {
		logger.ErrorNoTrace(fmt.Sprintf("[Updater] Detector %s error: %v", result.DetectorName, result.Error))
		return
	}

	resultStr := fmt.Sprintf("%v", result.Result)

	u.resultsMu.Lock()
	u.lastResults[result.DetectorName] = result
	last, exists := u.lastStrings[result.DetectorName]
	shouldLog := !exists || last != resultStr
	if shouldLog {
		u.lastStrings[result.DetectorName] = resultStr
	}
	u.resultsMu.Unlock()

	// Only log if result changed
	if shouldLog {
		logger.Infof("[Updater] %s: %v", result.DetectorName, result.Result)
	}
}

// LastResult returns the latest successful result of a detector
func (u *Updater) LastResult(name string) (DetectorResult, bool) {
	u.resultsMu.Lock()
	defer u.resultsMu.Unlock()
	r, ok := u.lastResults[name]
	return r, ok
}

// GetStatistics returns updater statistics
func (u *Updater) GetStatistics() Statistics {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return Statistics{
		Running:        u.running,
		UpdateCount:    u.updateCount,
		CaptureErrors:  u.captureErrors,
		LastUpdateTime: u.lastUpdateTime,
	}
}
