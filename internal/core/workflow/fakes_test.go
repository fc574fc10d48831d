package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// In-memory store implementations used across the engine tests.

type fakeWorkflowStore struct {
	workflows []Workflow
	markers   map[string]bool
	markErr   error
}

func newFakeWorkflowStore(workflows ...Workflow) *fakeWorkflowStore {
	return &fakeWorkflowStore{workflows: workflows, markers: make(map[string]bool)}
}

func markerKey(workflowID uuid.UUID, entityType EntityType, entityID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s", workflowID, entityType, entityID)
}

func (s *fakeWorkflowStore) ActiveWorkflows(_ context.Context, trigger TriggerType, entityType EntityType) ([]Workflow, error) {
	var matched []Workflow
	for _, wf := range s.workflows {
		if wf.IsActive && wf.TriggerType == trigger && wf.EntityType == entityType {
			matched = append(matched, wf)
		}
	}
	return matched, nil
}

func (s *fakeWorkflowStore) HasRunForRecord(_ context.Context, workflowID uuid.UUID, entityType EntityType, entityID uuid.UUID) (bool, error) {
	return s.markers[markerKey(workflowID, entityType, entityID)], nil
}

func (s *fakeWorkflowStore) MarkRunForRecord(_ context.Context, workflowID uuid.UUID, entityType EntityType, entityID uuid.UUID) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.markers[markerKey(workflowID, entityType, entityID)] = true
	return nil
}

type fakeExecutionStore struct {
	executions []*Execution
	actionLogs []*ActionLog
}

func (s *fakeExecutionStore) CreateExecution(_ context.Context, execution *Execution) error {
	execution.ID = uuid.New()
	s.executions = append(s.executions, execution)
	return nil
}

func (s *fakeExecutionStore) UpdateExecution(_ context.Context, _ *Execution) error {
	return nil
}

func (s *fakeExecutionStore) CreateActionLog(_ context.Context, actionLog *ActionLog) error {
	actionLog.ID = uuid.New()
	s.actionLogs = append(s.actionLogs, actionLog)
	return nil
}

func (s *fakeExecutionStore) UpdateActionLog(_ context.Context, _ *ActionLog) error {
	return nil
}

type fieldWrite struct {
	entityID uuid.UUID
	field    string
	value    interface{}
}

type fakeRecordStore struct {
	records  map[uuid.UUID]map[string]interface{}
	writes   []fieldWrite
	inserted []map[string]interface{}
	updErr   error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[uuid.UUID]map[string]interface{})}
}

func (s *fakeRecordStore) Get(_ context.Context, _ uuid.UUID, _ EntityType, id uuid.UUID) (map[string]interface{}, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}
	return record, nil
}

func (s *fakeRecordStore) UpdateField(_ context.Context, _ uuid.UUID, _ EntityType, id uuid.UUID, field string, value interface{}) error {
	if s.updErr != nil {
		return s.updErr
	}
	s.writes = append(s.writes, fieldWrite{entityID: id, field: field, value: value})
	if record, ok := s.records[id]; ok {
		record[field] = value
	}
	return nil
}

func (s *fakeRecordStore) Insert(_ context.Context, _ uuid.UUID, _ EntityType, fields map[string]interface{}) (uuid.UUID, error) {
	id := uuid.New()
	s.inserted = append(s.inserted, fields)
	s.records[id] = fields
	return id, nil
}

type fakeTaskStore struct {
	tasks     []*Task
	createErr error
}

func (s *fakeTaskStore) CreateTask(_ context.Context, task *Task) error {
	if s.createErr != nil {
		return s.createErr
	}
	task.ID = uuid.New()
	s.tasks = append(s.tasks, task)
	return nil
}

type fakeNotificationStore struct {
	notifications []*Notification
}

func (s *fakeNotificationStore) CreateNotification(_ context.Context, notification *Notification) error {
	notification.ID = uuid.New()
	s.notifications = append(s.notifications, notification)
	return nil
}

type fakeUserStore struct {
	members map[uuid.UUID][]uuid.UUID
}

func (s *fakeUserStore) TeamMemberIDs(_ context.Context, _ uuid.UUID, teamID uuid.UUID) ([]uuid.UUID, error) {
	return s.members[teamID], nil
}

type fakeDelayQueue struct {
	enqueued []*DelayedAction
}

func (s *fakeDelayQueue) EnqueueDelayedAction(_ context.Context, delayed *DelayedAction) error {
	s.enqueued = append(s.enqueued, delayed)
	return nil
}

type testStores struct {
	workflows     *fakeWorkflowStore
	executions    *fakeExecutionStore
	records       *fakeRecordStore
	tasks         *fakeTaskStore
	notifications *fakeNotificationStore
	users         *fakeUserStore
	delays        *fakeDelayQueue
}

func newTestStores(workflows ...Workflow) *testStores {
	return &testStores{
		workflows:     newFakeWorkflowStore(workflows...),
		executions:    &fakeExecutionStore{},
		records:       newFakeRecordStore(),
		tasks:         &fakeTaskStore{},
		notifications: &fakeNotificationStore{},
		users:         &fakeUserStore{members: make(map[uuid.UUID][]uuid.UUID)},
		delays:        &fakeDelayQueue{},
	}
}

func (ts *testStores) bundle() Stores {
	return Stores{
		Workflows:     ts.workflows,
		Executions:    ts.executions,
		Records:       ts.records,
		Tasks:         ts.tasks,
		Notifications: ts.notifications,
		Users:         ts.users,
		Delays:        ts.delays,
	}
}
