// internal/domain/models/runbook.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Runbook is an incident procedure owned by a user.
//
// OwnerID is a plain reference to users._id; it is not checked against the
// users collection here. Title and Description are covered by a text index.
type Runbook struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Severity    Severity           `bson:"severity" json:"severity"` // low | medium | high | critical
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Version     int                `bson:"version,omitempty" json:"version,omitempty"`

	ExecutionEnvironment *ExecutionEnvironment `bson:"execution_environment,omitempty" json:"execution_environment,omitempty"`
	DecisionTree         *DecisionTree         `bson:"decision_tree,omitempty" json:"decision_tree,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ResourceLimits bounds the container a runbook's commands would run in.
type ResourceLimits struct {
	MemoryMB       int     `bson:"memory_mb" json:"memory_mb"`
	CPULimit       float64 `bson:"cpu_limit" json:"cpu_limit"`
	TimeoutSeconds int     `bson:"timeout_seconds" json:"timeout_seconds"`
}

// DefaultResourceLimits returns 512 MB, one CPU and a one hour timeout.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{MemoryMB: 512, CPULimit: 1.0, TimeoutSeconds: 3600}
}

// VolumeMount maps a host path into the container.
type VolumeMount struct {
	HostPath      string `bson:"host_path" json:"host_path"`
	ContainerPath string `bson:"container_path" json:"container_path"`
	ReadOnly      bool   `bson:"read_only" json:"read_only"`
}

// ExecutionEnvironment describes the container image a runbook expects.
// It is stored with the runbook; nothing in this module starts containers.
type ExecutionEnvironment struct {
	Name                 string            `bson:"name" json:"name"`
	BaseImage            string            `bson:"base_image" json:"base_image"`
	DockerfileContent    string            `bson:"dockerfile_content,omitempty" json:"dockerfile_content,omitempty"`
	EnvironmentVariables map[string]string `bson:"environment_variables,omitempty" json:"environment_variables,omitempty"`
	Volumes              []VolumeMount     `bson:"volumes,omitempty" json:"volumes,omitempty"`
	NetworkMode          string            `bson:"network_mode" json:"network_mode"`
	ResourceLimits       ResourceLimits    `bson:"resource_limits" json:"resource_limits"`
}

// WithDefaults fills an unset network mode with "bridge" and zero resource
// limits with DefaultResourceLimits.
func (e ExecutionEnvironment) WithDefaults() ExecutionEnvironment {
	if e.NetworkMode == "" {
		e.NetworkMode = "bridge"
	}
	d := DefaultResourceLimits()
	if e.ResourceLimits.MemoryMB == 0 {
		e.ResourceLimits.MemoryMB = d.MemoryMB
	}
	if e.ResourceLimits.CPULimit == 0 {
		e.ResourceLimits.CPULimit = d.CPULimit
	}
	if e.ResourceLimits.TimeoutSeconds == 0 {
		e.ResourceLimits.TimeoutSeconds = d.TimeoutSeconds
	}
	return e
}
