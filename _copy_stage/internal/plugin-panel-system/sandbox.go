// Copyright 2025 James Ross
package pluginpanel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSandbox implements basic resource monitoring and limiting
type DefaultSandbox struct {
	containers map[string]*SandboxContainer
	logger     *zap.Logger
	mu         sync.RWMutex
}

// SandboxContainer represents an isolated environment for a plugin
type SandboxContainer struct {
	PluginID   string
	Resources  *ResourceRequirement
	Usage      *ResourceUsage
	StartTime  time.Time
	Active     bool
	Violations []string
	mu         sync.RWMutex
}

// NewDefaultSandbox creates a new sandbox manager
func NewDefaultSandbox(logger *zap.Logger) *DefaultSandbox {
	return &DefaultSandbox{
		containers: make(map[string]*SandboxContainer),
		logger:     logger,
	}
}

// CreateContainer creates a new sandbox container for a plugin
func (s *DefaultSandbox) CreateContainer(pluginID string, resources *ResourceRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	container := &SandboxContainer{
		PluginID:   pluginID,
		Resources:  resources,
		Usage:      &ResourceUsage{PluginID: pluginID},
		Active:     false,
		Violations: make([]string, 0),
	}

	s.containers[pluginID] = container
	s.logger.Debug("Created sandbox container",
		zap.String("plugin_id", pluginID),
		zap.Int("max_memory_mb", resources.MaxMemoryMB))

	return nil
}

// StartPlugin starts monitoring a plugin in its sandbox
func (s *DefaultSandbox) StartPlugin(ctx context.Context, pluginID string, instance PluginInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	container, exists := s.containers[pluginID]
	if !exists {
		return fmt.Errorf("sandbox container not found for plugin: %s", pluginID)
	}

	container.Active = true
	container.StartTime = time.Now()

	// Start resource monitoring
	go s.monitorContainer(ctx, container)

	s.logger.Debug("Started plugin in sandbox", zap.String("plugin_id", pluginID))
	return nil
}

// StopPlugin stops monitoring a plugin
func (s *DefaultSandbox) StopPlugin(ctx context.Context, pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if container, exists := s.containers[pluginID]; exists {
		container.Active = false
		s.logger.Debug("Stopped plugin in sandbox", zap.String("plugin_id", pluginID))
	}

	return nil
}

// MonitorResources returns current resource usage for a plugin
func (s *DefaultSandbox) MonitorResources(pluginID string) (*ResourceUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	container, exists := s.containers[pluginID]
	if !exists {
		return nil, fmt.Errorf("plugin not found in sandbox: %s", pluginID)
	}

	container.mu.RLock()
	defer container.mu.RUnlock()

	// Create a copy of the usage data
	usage := &ResourceUsage{
		PluginID:      container.Usage.PluginID,
		MemoryUsageMB: container.Usage.MemoryUsageMB,
		CPUPercent:    container.Usage.CPUPercent,
		ExecutionTime: container.Usage.ExecutionTime,
		Goroutines:    container.Usage.Goroutines,
		LastUpdate:    container.Usage.LastUpdate,
		Violations:    make([]string, len(container.Violations)),
	}
	copy(usage.Violations, container.Violations)

	return usage, nil
}

// EnforceTimeout enforces execution timeouts for a plugin
func (s *DefaultSandbox) EnforceTimeout(pluginID string, timeout time.Duration) error {
	container, exists := s.containers[pluginID]
	if !exists {
		return fmt.Errorf("plugin not found in sandbox: %s", pluginID)
	}

	container.mu.Lock()
	defer container.mu.Unlock()

	if container.Active && time.Since(container.StartTime) > timeout {
		container.Violations = append(container.Violations, "execution timeout exceeded")
		s.logger.Warn("Plugin exceeded execution timeout",
			zap.String("plugin_id", pluginID),
			zap.Duration("timeout", timeout))
		return fmt.Errorf("plugin %s exceeded execution timeout", pluginID)
	}

	return nil
}

// KillPlugin forcefully terminates a plugin
func (s *DefaultSandbox) KillPlugin(pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	container, exists := s.containers[pluginID]
	if !exists {
		return fmt.Errorf("plugin not found in sandbox: %s", pluginID)
	}

	container.Active = false
	container.Violations = append(container.Violations, "forcefully terminated")

	s.logger.Warn("Plugin forcefully terminated", zap.String("plugin_id", pluginID))
	return nil
}

// monitorContainer continuously monitors resource usage of a container
func (s *DefaultSandbox) monitorContainer(ctx context.Context, container *SandboxContainer) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !container.Active {
				return
			}
			s.updateResourceUsage(container)
		case <-ctx.Done():
			return
		}
	}
}

// updateResourceUsage updates the resource usage metrics for a container
func (s *DefaultSandbox) updateResourceUsage(container *SandboxContainer) {
	container.mu.Lock()
	defer container.mu.Unlock()

	now := time.Now()

	// Get memory statistics (simplified)
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// This is a simplified approach - in a real implementation you'd track
	// per-plugin memory usage using more sophisticated techniques
	estimatedMemoryMB := float64(memStats.Alloc) / 1024 / 1024

	// Update usage
	container.Usage.MemoryUsageMB = estimatedMemoryMB
	container.Usage.CPUPercent = 0.0 // Placeholder - would need proper CPU monitoring
	container.Usage.ExecutionTime = now.Sub(container.StartTime)
	container.Usage.Goroutines = runtime.NumGoroutine()
	container.Usage.LastUpdate = now

	// Check for violations
	violations := make([]string, 0)

	if estimatedMemoryMB > float64(container.Resources.MaxMemoryMB) {
		violations = append(violations, "memory limit exceeded")
	}

	if container.Usage.ExecutionTime > container.Resources.Timeout {
		violations = append(violations, "execution timeout exceeded")
	}

	if container.Usage.Goroutines > container.Resources.MaxGoroutines {
		violations = append(violations, "goroutine limit exceeded")
	}

	if len(violations) > 0 {
		container.Violations = append(container.Violations, violations...)
		s.logger.Warn("Resource violations detected",
			zap.String("plugin_id", container.PluginID),
			zap.Strings("violations", violations))
	}
}

// HotReloader implements file watching for plugin hot-reload
type HotReloader struct {
	watchDir string
	callback func(path string, event string)
	logger   *zap.Logger
	running  bool
	mu       sync.RWMutex
}

// NewHotReloader creates a new hot reloader
func NewHotReloader(logger *zap.Logger) *HotReloader {
	return &HotReloader{
		logger: logger,
	}
}

// Watch starts watching a directory for changes
func (hr *HotReloader) Watch(pluginDir string) error {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	hr.watchDir = pluginDir
	hr.running = true

	// In a real implementation, you'd use a proper file watcher like fsnotify
	// For now, we'll just simulate it with a periodic check
	go hr.watchLoop()

	hr.logger.Info("Started hot reloader", zap.String("watch_dir", pluginDir))
	return nil
}

// Stop stops the hot reloader
func (hr *HotReloader) Stop() error {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	hr.running = false
	hr.logger.Info("Stopped hot reloader")
	return nil
}

// OnChange sets the callback for file changes
func (hr *HotReloader) OnChange(callback func(path string, event string)) error {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	hr.callback = callback
	return nil
}

// watchLoop simulates file watching (placeholder implementation)
func (hr *HotReloader) watchLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		hr.mu.RLock()
		running := hr.running
		hr.mu.RUnlock()

		if !running {
			return
		}

		select {
		case <-ticker.C:
			// Placeholder: In a real implementation, you'd check for actual file changes
			// using fsnotify or similar library
		}
	}
}

// HostAPI implements the capability-gated API surface for plugins
type HostAPIImpl struct {
	manager   *Manager
	pluginID  string
	logger    *zap.Logger
}

// NewHostAPI creates a new host API instance for a plugin
func NewHostAPI(manager *Manager, pluginID string, logger *zap.Logger) *HostAPIImpl {
	return &HostAPIImpl{
		manager:  manager,
		pluginID: pluginID,
		logger:   logger,
	}
}

// GetStats returns system statistics (capability-gated)
func (api *HostAPIImpl) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if !api.checkPermission(CapabilityReadStats) {
		return nil, fmt.Errorf("permission denied: read_stats")
	}

	// Placeholder implementation
	stats := map[string]interface{}{
		"queues":      5,
		"total_jobs":  150,
		"active_jobs": 25,
		"failed_jobs": 3,
		"timestamp":   time.Now(),
	}

	api.logger.Debug("Plugin requested stats", zap.String("plugin_id", api.pluginID))
	return stats, nil
}

// GetQueues returns available queues (capability-gated)
func (api *HostAPIImpl) GetQueues(ctx context.Context) ([]string, error) {
	if !api.checkPermission(CapabilityReadQueues) {
		return nil, fmt.Errorf("permission denied: read_queues")
	}

	// Placeholder implementation
	queues := []string{"high", "medium", "low", "batch", "cleanup"}
	return queues, nil
}

// GetJobs returns jobs from a queue (capability-gated)
func (api *HostAPIImpl) GetJobs(ctx context.Context, queue string, limit int) ([]interface{}, error) {
	if !api.checkPermission(CapabilityReadJobs) {
		return nil, fmt.Errorf("permission denied: read_jobs")
	}

	// Placeholder implementation
	jobs := make([]interface{}, 0, limit)
	for i := 0; i < limit && i < 10; i++ {
		jobs = append(jobs, map[string]interface{}{
			"id":    fmt.Sprintf("job_%d", i),
			"queue": queue,
			"status": "pending",
		})
	}

	return jobs, nil
}

// EnqueueJob enqueues a new job (capability-gated)
func (api *HostAPIImpl) EnqueueJob(ctx context.Context, queue string, payload interface{}) error {
	if !api.checkPermission(CapabilityEnqueue) {
		return fmt.Errorf("permission denied: enqueue")
	}

	api.logger.Info("Plugin enqueued job",
		zap.String("plugin_id", api.pluginID),
		zap.String("queue", queue))

	// In a real implementation, this would integrate with the job queue
	return nil
}

// PeekJob peeks at the next job in a queue (capability-gated)
func (api *HostAPIImpl) PeekJob(ctx context.Context, queue string) (interface{}, error) {
	if !api.checkPermission(CapabilityPeek) {
		return nil, fmt.Errorf("permission denied: peek")
	}

	// Placeholder implementation
	return map[string]interface{}{
		"id":    "next_job",
		"queue": queue,
		"status": "pending",
	}, nil
}

// RequeueJob requeues a job (capability-gated)
func (api *HostAPIImpl) RequeueJob(ctx context.Context, jobID string) error {
	if !api.checkPermission(CapabilityRequeue) {
		return fmt.Errorf("permission denied: requeue")
	}

	api.logger.Info("Plugin requeued job",
		zap.String("plugin_id", api.pluginID),
		zap.String("job_id", jobID))

	return nil
}

// PurgeQueue purges all jobs from a queue (capability-gated)
func (api *HostAPIImpl) PurgeQueue(ctx context.Context, queue string) error {
	if !api.checkPermission(CapabilityPurge) {
		return fmt.Errorf("permission denied: purge")
	}

	api.logger.Warn("Plugin purged queue",
		zap.String("plugin_id", api.pluginID),
		zap.String("queue", queue))

	return nil
}

// RenderPanel renders plugin content (capability-gated)
func (api *HostAPIImpl) RenderPanel(ctx context.Context, commands []*RenderCommand) error {
	if !api.checkPermission(CapabilityRenderPanel) {
		return fmt.Errorf("permission denied: render_panel")
	}

	renderer := api.manager.GetPanelRenderer()
	for _, cmd := range commands {
		if err := renderer.RenderCommand(ctx, cmd); err != nil {
			return err
		}
	}

	return nil
}

// ShowDialog shows a dialog to the user (capability-gated)
func (api *HostAPIImpl) ShowDialog(ctx context.Context, title, message string) error {
	if !api.checkPermission(CapabilityDialogs) {
		return fmt.Errorf("permission denied: dialogs")
	}

	api.logger.Info("Plugin showing dialog",
		zap.String("plugin_id", api.pluginID),
		zap.String("title", title))

	return nil
}

// GetSelection returns the current user selection (capability-gated)
func (api *HostAPIImpl) GetSelection(ctx context.Context) (interface{}, error) {
	if !api.checkPermission(CapabilityReadSelection) {
		return nil, fmt.Errorf("permission denied: read_selection")
	}

	// Placeholder implementation
	return map[string]interface{}{
		"type": "job",
		"id":   "selected_job_123",
	}, nil
}

// Subscribe subscribes to events (capability-gated)
func (api *HostAPIImpl) Subscribe(ctx context.Context, eventTypes []EventType) error {
	// Event subscription uses specific capability checks per event type
	for _, eventType := range eventTypes {
		switch eventType {
		case EventTypeStats:
			if !api.checkPermission(CapabilityReadStats) {
				return fmt.Errorf("permission denied for event: %s", eventType)
			}
		case EventTypeSelection:
			if !api.checkPermission(CapabilityReadSelection) {
				return fmt.Errorf("permission denied for event: %s", eventType)
			}
		case EventTypeKeypress:
			if !api.checkPermission(CapabilityKeyEvents) {
				return fmt.Errorf("permission denied for event: %s", eventType)
			}
		case EventTypeMouseClick:
			if !api.checkPermission(CapabilityMouseEvents) {
				return fmt.Errorf("permission denied for event: %s", eventType)
			}
		}
	}

	eventBus := api.manager.GetEventBus()
	return eventBus.Subscribe(api.pluginID, eventTypes)
}

// Unsubscribe unsubscribes from events
func (api *HostAPIImpl) Unsubscribe(ctx context.Context, eventTypes []EventType) error {
	eventBus := api.manager.GetEventBus()
	return eventBus.Unsubscribe(api.pluginID, eventTypes)
}

// checkPermission checks if the plugin has permission for a capability
func (api *HostAPIImpl) checkPermission(capability Capability) bool {
	permissionManager := api.manager.GetPermissionManager()
	return permissionManager.CheckPermission(api.pluginID, capability)
}