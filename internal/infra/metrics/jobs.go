package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workerTasksTotal, workerQueueRejected) }

var (
	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Tasks run by the worker pool, labeled by result.",
		},
		[]string{"result"}, // 'ok', 'fail'
	)

	workerQueueRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_queue_rejected_total",
			Help: "Tasks dropped because the worker queue was full.",
		},
	)
)

func IncWorkerTask(ok bool) {
	workerTasksTotal.WithLabelValues(boolLabel(ok)).Inc()
}

func IncWorkerRejected() { workerQueueRejected.Inc() }
