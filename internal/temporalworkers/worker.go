package temporalworkers

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// TaskQueue is the Temporal task queue every §4.9 background workflow and
// activity runs on, mirroring the teacher's single "chum-task-queue".
const TaskQueue = "membria-core-task-queue"

// StartWorker connects to Temporal and runs the membria-core task queue
// worker until its context is cancelled (via worker.InterruptCh(), matching
// the teacher's internal/temporal.StartWorker shape). acts carries every
// dependency the registered activities close over.
func StartWorker(hostPort string, acts *Activities, logger *slog.Logger) error {
	if hostPort == "" {
		hostPort = "127.0.0.1:7233"
	}
	if logger == nil {
		logger = slog.Default()
	}

	c, err := client.Dial(client.Options{HostPort: hostPort})
	if err != nil {
		return fmt.Errorf("temporalworkers: dial %s: %w", hostPort, err)
	}
	defer c.Close()

	w := worker.New(c, TaskQueue, worker.Options{})

	w.RegisterWorkflow(BatchProcessWorkflow)
	w.RegisterWorkflow(HealthMonitorWorkflow)

	w.RegisterActivity(acts.DrainPendingSignalsActivity)
	w.RegisterActivity(acts.HealthCheckActivity)

	logger.Info("temporal worker started", "task_queue", TaskQueue, "host_port", hostPort)
	return w.Run(worker.InterruptCh())
}
