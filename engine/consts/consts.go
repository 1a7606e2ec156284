package consts

import "time"

// Request protocol
const (
	// OCC_MAX_RETRIES is the number of times a handler is re-run after a write conflict
	OCC_MAX_RETRIES = 3
	// MAX_REQUEST_BODY_SIZE limits the size of an HTTP request body or a socket message
	MAX_REQUEST_BODY_SIZE = 1024 * 1024
)

// Authorization
const (
	// SESSION_TOKEN_TTL is how long an issued session token stays valid
	SESSION_TOKEN_TTL = time.Hour * 24
	// SESSION_KEY_PREFIX prefixes the cache key of a player's session token
	SESSION_KEY_PREFIX = "session:"
)

// Table storage
const (
	// SHARED_ROW_KEY is the row key of every entity row
	SHARED_ROW_KEY = "SHARED_ROW_KEY"
	// SCAN_PAGE_LIMIT is the hard ceiling of rows fetched per scan page
	SCAN_PAGE_LIMIT = 9999
	// TEST_ID_PREFIX marks entities visible only in the test tier
	TEST_ID_PREFIX = "Test_"
)

// Master
const (
	// INSTANCE_REQUEST_TIMEOUT is how long a pending instance request is waited for
	INSTANCE_REQUEST_TIMEOUT = time.Minute
	// INSTANCE_REQUEST_QUEUE_SUFFIX is the queue name suffix for instance requests
	INSTANCE_REQUEST_QUEUE_SUFFIX = "-InstanceRequestQueue"
	// UPDATE_BUILD_TOPIC_SUFFIX is the topic name suffix for build update notifications
	UPDATE_BUILD_TOPIC_SUFFIX = "-UpdateBuildTopic"
	// MSGBUS_SEND_TIMEOUT bounds one outbound message send
	MSGBUS_SEND_TIMEOUT = time.Second * 30
)

// Tunable Options
const (
	// ASYNC_JOB_QUEUE_MAXLEN is the job queue length of each async worker group
	ASYNC_JOB_QUEUE_MAXLEN = 10000
	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
	// STORAGE_OP_WARN_THRESHOLD logs storage operations slower than this
	STORAGE_OP_WARN_THRESHOLD = time.Millisecond * 500
	// KVDB_OP_WARN_THRESHOLD logs cache operations slower than this
	KVDB_OP_WARN_THRESHOLD = time.Millisecond * 100
	// REQUEST_WARN_THRESHOLD logs requests slower than this
	REQUEST_WARN_THRESHOLD = time.Second
	// GLOBAL_CONFIG_REFRESH_TIMEOUT bounds one reload of the global configuration
	GLOBAL_CONFIG_REFRESH_TIMEOUT = time.Second * 10
	// SERVER_SHUTDOWN_TIMEOUT bounds graceful HTTP shutdown
	SERVER_SHUTDOWN_TIMEOUT = time.Second * 10
)

// Debug Options
const (
	// DEBUG_REQUESTS prints request/response debug logs
	DEBUG_REQUESTS = false
	// DEBUG_SAVE_LOAD prints save & load debug logs
	DEBUG_SAVE_LOAD = false
	// DEBUG_SOCKETS prints socket connection debug logs
	DEBUG_SOCKETS = false
	// DEBUG_MSGBUS prints outbound message debug logs
	DEBUG_MSGBUS = false
)
