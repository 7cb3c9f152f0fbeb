package config

import (
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
)

const (
	defaultAcks                     = "1"
	defaultCompression              = "lz4"
	defaultRetries                  = 3
	defaultMaxRequestSize           = 1048576
	defaultRequestTimeout           = 30 * time.Second
	defaultFlushTimeout             = 10 * time.Second
	defaultProducerReadinessTimeout = 30
	defaultAutoOffsetReset          = "earliest"
	defaultMaxPollRecords           = 100
	defaultSessionTimeout           = 30 * time.Second
	defaultHeartbeatInterval        = 10 * time.Second
	defaultPollTimeout              = 500 * time.Millisecond
	defaultRestartDelay             = 5 * time.Second

	maxReadinessTimeout = 600
	maxPollRecordsLimit = 10000
)

var defaultTopics = map[events.Domain]string{
	events.DomainNotification: "notification-queue",
	events.DomainAudit:        "audit-queue",
	events.DomainUser:         "user-events",
	events.DomainEmployee:     "employee",
	events.DomainLeave:        "leave-queue",
	events.DomainAttendance:   "attendance",
	events.DomainCompliance:   "compliance",
}

var (
	validAcks            = []string{"0", "1", "-1", "all"}
	validCompression     = []string{"none", "gzip", "snappy", "lz4", "zstd"}
	validAutoOffsetReset = []string{"earliest", "latest"}
)
