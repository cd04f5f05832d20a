package delivery

import (
	"encoding/json"
	"fmt"
)

// TaskKind discriminates queue task payloads.
type TaskKind string

const (
	// TaskHealthCheck is a no-op probe task used to verify the queue path.
	TaskHealthCheck TaskKind = "HealthCheck"
	// TaskMessageBatch is the first-expansion task for a freshly created
	// message; processing it fans out one MessageV1 task per endpoint.
	TaskMessageBatch TaskKind = "MessageBatch"
	// TaskMessageV1 targets a single endpoint and carries the retry count.
	TaskMessageV1 TaskKind = "MessageV1"
)

// Task is the unit of work carried on the queue. After batch expansion only
// MessageV1 tasks exist, which keeps retry accounting on the task itself.
type Task struct {
	Kind         TaskKind    `json:"type"`
	MsgID        string      `json:"msg_id,omitempty"`
	AppID        string      `json:"app_id,omitempty"`
	EndpointID   string      `json:"endpoint_id,omitempty"`
	AttemptCount uint16      `json:"attempt_count,omitempty"`
	Trigger      TriggerType `json:"trigger_type,omitempty"`
}

// NewMessageBatchTask builds the initial expansion task for a message.
func NewMessageBatchTask(msgID, appID string, trigger TriggerType) Task {
	return Task{Kind: TaskMessageBatch, MsgID: msgID, AppID: appID, Trigger: trigger}
}

// NewMessageV1Task builds a single-endpoint delivery task.
func NewMessageV1Task(msgID, appID, endpointID string, attemptCount uint16, trigger TriggerType) Task {
	return Task{
		Kind:         TaskMessageV1,
		MsgID:        msgID,
		AppID:        appID,
		EndpointID:   endpointID,
		AttemptCount: attemptCount,
		Trigger:      trigger,
	}
}

// Encode serializes the task for the queue transport.
func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTask parses a queue payload back into a Task.
func DecodeTask(payload []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(payload, &t); err != nil {
		return Task{}, fmt.Errorf("%w: %w", ErrMalformedTask, err)
	}
	switch t.Kind {
	case TaskHealthCheck, TaskMessageBatch, TaskMessageV1:
		return t, nil
	default:
		return Task{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedTask, t.Kind)
	}
}
