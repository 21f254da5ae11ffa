package orchestrator

import "time"

// ============================================================================
// DISPATCHER
// ============================================================================

// DEFAULT_QUEUE_SIZE is the buffered capacity of the dispatcher job queue.
const DEFAULT_QUEUE_SIZE = 100

// DEFAULT_RESULT_BUFFER is the buffered capacity of the dispatcher result channel.
const DEFAULT_RESULT_BUFFER = 200

// DEFAULT_STOP_TIMEOUT bounds how long Stop waits for running experiments.
const DEFAULT_STOP_TIMEOUT = 30 * time.Second
