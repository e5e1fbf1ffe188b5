package models

import (
	"time"
)

// ServiceLabel is the label compose sets on every container it manages
const ServiceLabel = "com.docker.compose.service"

// RunningContainer maps a live container back to its compose service and
// the image reference it was actually started from
type RunningContainer struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	Image   string `json:"image"`
}

// ContainerState is the readiness-relevant subset of a container's state
type ContainerState struct {
	ID      string
	Running bool
	// Health is empty when the container declares no healthcheck
	Health string
}

// ArchiveMetadata describes an exported copy of the backup directory
type ArchiveMetadata struct {
	ID          string            `json:"id"`
	Project     string            `json:"project"`
	Version     string            `json:"version"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
	Encrypted   bool              `json:"encrypted,omitempty"`
	Images      map[string]string `json:"images,omitempty"`
	Description string            `json:"description,omitempty"`
}
