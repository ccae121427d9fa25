package autosched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeglow/internal/models"
)

type fakeStore struct {
	automations map[string]models.Automation
	active      []models.Automation
}

func (f *fakeStore) AutomationByID(ctx context.Context, id string) (*models.Automation, error) {
	a, ok := f.automations[id]
	if !ok {
		return nil, context.Canceled
	}
	return &a, nil
}

func (f *fakeStore) ActiveAutomationsByTrigger(ctx context.Context, triggerType string) ([]models.Automation, error) {
	return f.active, nil
}

type fakeExecutor struct {
	fired []string
}

func (f *fakeExecutor) Execute(ctx context.Context, a models.Automation) {
	f.fired = append(f.fired, a.ID)
}

func timeAutomation(id, start, end string, days []string) models.Automation {
	return models.Automation{
		ID:          id,
		Name:        "test " + id,
		IsActive:    true,
		TriggerType: models.TriggerTime,
		TimeTrigger: &models.TimeTrigger{
			StartTime:   start,
			EndTime:     end,
			IsRecurring: len(days) > 0,
			DaysOfWeek:  days,
		},
	}
}

func TestCronSpec(t *testing.T) {
	cases := []struct {
		name    string
		clock   string
		trigger models.TimeTrigger
		want    string
		wantErr bool
	}{
		{
			name:    "recurring weekdays",
			clock:   "07:30",
			trigger: models.TimeTrigger{IsRecurring: true, DaysOfWeek: []string{"monday", "friday"}},
			want:    "30 7 * * 1,5",
		},
		{
			name:    "sunday maps to zero",
			clock:   "22:00",
			trigger: models.TimeTrigger{IsRecurring: true, DaysOfWeek: []string{"sunday"}},
			want:    "0 22 * * 0",
		},
		{
			name:    "non-recurring fires daily",
			clock:   "09:15",
			trigger: models.TimeTrigger{IsRecurring: false, DaysOfWeek: []string{"monday"}},
			want:    "15 9 * * *",
		},
		{
			name:    "empty day list fires daily",
			clock:   "18:45",
			trigger: models.TimeTrigger{IsRecurring: true},
			want:    "45 18 * * *",
		},
		{
			name:    "bad clock",
			clock:   "half past nine",
			trigger: models.TimeTrigger{},
			wantErr: true,
		},
		{
			name:    "out of range",
			clock:   "25:00",
			trigger: models.TimeTrigger{},
			wantErr: true,
		},
		{
			name:    "unknown day",
			clock:   "10:00",
			trigger: models.TimeTrigger{IsRecurring: true, DaysOfWeek: []string{"someday"}},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cronSpec(tc.clock, tc.trigger)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func newTestScheduler(store *fakeStore, exec *fakeExecutor) *Scheduler {
	return New(store, exec, time.UTC, zap.NewNop())
}

func TestScheduleRegistersJobs(t *testing.T) {
	store := &fakeStore{automations: map[string]models.Automation{}}
	s := newTestScheduler(store, &fakeExecutor{})

	a := timeAutomation("a1", "08:00", "20:00", []string{"monday"})
	require.NoError(t, s.Schedule(a))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a1", jobs[0].AutomationID)
	assert.NotNil(t, jobs[0].NextEnd)
}

func TestScheduleWithoutEndTime(t *testing.T) {
	s := newTestScheduler(&fakeStore{}, &fakeExecutor{})

	a := timeAutomation("a1", "08:00", "", nil)
	require.NoError(t, s.Schedule(a))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].NextEnd)
}

func TestScheduleReplacesExisting(t *testing.T) {
	s := newTestScheduler(&fakeStore{}, &fakeExecutor{})

	require.NoError(t, s.Schedule(timeAutomation("a1", "08:00", "20:00", nil)))
	require.NoError(t, s.Schedule(timeAutomation("a1", "09:00", "21:00", nil)))

	assert.Len(t, s.Jobs(), 1)
}

func TestScheduleRejectsSensorTrigger(t *testing.T) {
	s := newTestScheduler(&fakeStore{}, &fakeExecutor{})

	err := s.Schedule(models.Automation{ID: "a1", TriggerType: models.TriggerSensor})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestUnscheduleUnknownIsNoOp(t *testing.T) {
	s := newTestScheduler(&fakeStore{}, &fakeExecutor{})
	s.Unschedule("ghost")
	assert.Empty(t, s.Jobs())
}

func TestRescheduleRemovesDeleted(t *testing.T) {
	store := &fakeStore{automations: map[string]models.Automation{}}
	s := newTestScheduler(store, &fakeExecutor{})

	require.NoError(t, s.Schedule(timeAutomation("a1", "08:00", "", nil)))
	require.NoError(t, s.Reschedule(context.Background(), "a1"))

	assert.Empty(t, s.Jobs())
}

func TestRescheduleRemovesDeactivated(t *testing.T) {
	a := timeAutomation("a1", "08:00", "", nil)
	a.IsActive = false
	store := &fakeStore{automations: map[string]models.Automation{"a1": a}}
	s := newTestScheduler(store, &fakeExecutor{})

	active := a
	active.IsActive = true
	require.NoError(t, s.Schedule(active))
	require.NoError(t, s.Reschedule(context.Background(), "a1"))

	assert.Empty(t, s.Jobs())
}

func TestRescheduleAddsFreshJobs(t *testing.T) {
	a := timeAutomation("a1", "06:00", "", nil)
	store := &fakeStore{automations: map[string]models.Automation{"a1": a}}
	s := newTestScheduler(store, &fakeExecutor{})

	require.NoError(t, s.Reschedule(context.Background(), "a1"))
	assert.Len(t, s.Jobs(), 1)
}

func TestFireSkipsInactive(t *testing.T) {
	a := timeAutomation("a1", "06:00", "", nil)
	a.IsActive = false
	store := &fakeStore{automations: map[string]models.Automation{"a1": a}}
	exec := &fakeExecutor{}
	s := newTestScheduler(store, exec)

	s.fire("a1")
	assert.Empty(t, exec.fired)
}

func TestFireExecutesActive(t *testing.T) {
	a := timeAutomation("a1", "06:00", "", nil)
	store := &fakeStore{automations: map[string]models.Automation{"a1": a}}
	exec := &fakeExecutor{}
	s := newTestScheduler(store, exec)

	s.fire("a1")
	assert.Equal(t, []string{"a1"}, exec.fired)
}

func TestStartLoadsActiveAutomations(t *testing.T) {
	store := &fakeStore{
		active: []models.Automation{
			timeAutomation("a1", "08:00", "20:00", []string{"monday"}),
			timeAutomation("a2", "09:00", "", nil),
		},
	}
	s := newTestScheduler(store, &fakeExecutor{})
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.Jobs(), 2)
}
