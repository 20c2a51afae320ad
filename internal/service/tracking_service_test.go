package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/models"
	"github.com/sitepulse/tracking-backend-go/internal/spatial"
	"github.com/sitepulse/tracking-backend-go/internal/worklock"
)

// Site center from the Marina Bay fixture used across the geofence tests
var siteCenter = models.Coordinate{Latitude: 1.3521, Longitude: 103.8198}

type trackingFixture struct {
	svc        *TrackingService
	attendance *fakeAttendanceStore
	tasks      *fakeTaskStore
	locks      *worklock.Registry
	clock      *fixedClock
}

func newTrackingFixture(t *testing.T) *trackingFixture {
	t.Helper()

	projects := &fakeProjectStore{projects: map[string]*models.Project{
		"p1": {
			ID:   "p1",
			Name: "Riverside Tower",
			Geofence: models.GeofenceConfig{
				CenterLat:              siteCenter.Latitude,
				CenterLng:              siteCenter.Longitude,
				RadiusMeters:           100,
				AllowedVarianceMeters:  50,
				RequiredAccuracyMeters: 25,
				StrictMode:             true,
			},
		},
		"p-advisory": {
			ID:   "p-advisory",
			Name: "Depot",
			Geofence: models.GeofenceConfig{
				CenterLat:              siteCenter.Latitude,
				CenterLng:              siteCenter.Longitude,
				RadiusMeters:           100,
				AllowedVarianceMeters:  50,
				RequiredAccuracyMeters: 25,
				StrictMode:             false,
			},
		},
		"p-open": {
			ID:       "p-open",
			Name:     "Anywhere",
			Geofence: models.GeofenceConfig{Unrestricted: true},
		},
		"p-broken": {
			ID:       "p-broken",
			Name:     "Misconfigured",
			Geofence: models.GeofenceConfig{RadiusMeters: 0},
		},
	}}

	attendance := newFakeAttendanceStore()
	tasks := newFakeTaskStore()
	locks := worklock.NewRegistry(3)
	clock := newFixedClock(at(8, 0))

	svc := NewTrackingService(
		projects,
		NewAttendanceService(attendance, testDefaults),
		NewTaskService(tasks),
		locks,
		clock,
	)
	return &trackingFixture{svc: svc, attendance: attendance, tasks: tasks, locks: locks, clock: clock}
}

func TestClockInInsideGeofence(t *testing.T) {
	f := newTrackingFixture(t)

	rec, err := f.svc.ClockIn("w1", "p1", siteCenter, 10)
	require.NoError(t, err)
	require.Equal(t, models.AttendanceLate, rec.Status) // 08:00 vs 07:00 start
	require.Equal(t, 60, rec.LateMinutes)
	require.True(t, rec.InsideGeofenceCheckIn)
}

func TestClockInOutsideGeofenceRejected(t *testing.T) {
	f := newTrackingFixture(t)

	// ~333m north of center, beyond the 150m effective boundary
	far := models.Coordinate{Latitude: siteCenter.Latitude + 0.003, Longitude: siteCenter.Longitude}
	_, err := f.svc.ClockIn("w1", "p1", far, 10)
	require.Equal(t, apperrors.CodeOutsideGeofence, apperrors.CodeOf(err))

	// Rejection leaves no record behind
	rec, err := f.attendance.GetForDate("w1", "p1", testDate)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestClockInJustInsideBoundary(t *testing.T) {
	f := newTrackingFixture(t)

	lat, lng := spatial.DestinationPoint(siteCenter.Latitude, siteCenter.Longitude, 90, 149)
	_, err := f.svc.ClockIn("w1", "p1", models.Coordinate{Latitude: lat, Longitude: lng}, 10)
	require.NoError(t, err)
}

func TestLowAccuracyBlocksInStrictMode(t *testing.T) {
	f := newTrackingFixture(t)

	_, err := f.svc.ClockIn("w1", "p1", siteCenter, 80)
	require.Equal(t, apperrors.CodeAccuracyTooLow, apperrors.CodeOf(err))
}

func TestLowAccuracyAdvisoryWhenStrictModeOff(t *testing.T) {
	f := newTrackingFixture(t)

	_, err := f.svc.ClockIn("w1", "p-advisory", siteCenter, 80)
	require.NoError(t, err)
}

func TestUnrestrictedProjectSkipsFence(t *testing.T) {
	f := newTrackingFixture(t)

	nowhereNear := models.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	_, err := f.svc.ClockIn("w1", "p-open", nowhereNear, 500)
	require.NoError(t, err)
}

func TestInvalidGeofenceConfigRejected(t *testing.T) {
	f := newTrackingFixture(t)

	_, err := f.svc.ClockIn("w1", "p-broken", siteCenter, 10)
	require.Equal(t, apperrors.CodeConfigInvalid, apperrors.CodeOf(err))
}

func TestInputValidation(t *testing.T) {
	f := newTrackingFixture(t)

	_, err := f.svc.ClockIn("", "p1", siteCenter, 10)
	require.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, err = f.svc.ClockIn("w1", "p1", models.Coordinate{Latitude: 91, Longitude: 0}, 10)
	require.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, err = f.svc.ClockIn("w1", "p1", models.Coordinate{Latitude: 0, Longitude: -181}, 10)
	require.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, err = f.svc.ClockIn("w1", "p1", siteCenter, -1)
	require.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestUnknownProject(t *testing.T) {
	f := newTrackingFixture(t)

	_, err := f.svc.ClockIn("w1", "nope", siteCenter, 10)
	require.Equal(t, apperrors.CodeProjectNotFound, apperrors.CodeOf(err))

	// Admin paths without geofence checks still verify the project
	_, err = f.svc.MarkAbsence("w1", "nope", "sick", "", "supervisor-9")
	require.Equal(t, apperrors.CodeProjectNotFound, apperrors.CodeOf(err))

	_, err = f.svc.Escalate("w1", "nope", "supervisor-9")
	require.Equal(t, apperrors.CodeProjectNotFound, apperrors.CodeOf(err))
}

func TestTaskStartGatedOnAssignmentProject(t *testing.T) {
	f := newTrackingFixture(t)
	f.tasks.put(&models.TaskAssignment{
		ID: "A", EmployeeID: "w1", ProjectID: "p1", Date: testDate,
		Status: models.TaskQueued,
		Target: models.DailyTarget{Quantity: 20, Unit: "m2"},
	})

	far := models.Coordinate{Latitude: siteCenter.Latitude + 0.003, Longitude: siteCenter.Longitude}
	_, err := f.svc.StartTask("w1", "A", far, 10)
	require.Equal(t, apperrors.CodeOutsideGeofence, apperrors.CodeOf(err))

	result, err := f.svc.StartTask("w1", "A", siteCenter, 10)
	require.NoError(t, err)
	require.Equal(t, models.TaskInProgress, result.Assignment.Status)
}

func TestPauseNeedsNoLocation(t *testing.T) {
	f := newTrackingFixture(t)
	f.tasks.put(&models.TaskAssignment{
		ID: "A", EmployeeID: "w1", ProjectID: "p1", Date: testDate,
		Status: models.TaskInProgress,
	})

	result, err := f.svc.PauseTask("w1", "A", "rain delay")
	require.NoError(t, err)
	require.Equal(t, models.TaskPaused, result.Assignment.Status)
}

func TestResumeReportsAutoPausedAssignment(t *testing.T) {
	f := newTrackingFixture(t)
	f.tasks.put(&models.TaskAssignment{
		ID: "A", EmployeeID: "w1", ProjectID: "p1", Date: testDate,
		Status: models.TaskInProgress,
	})
	f.tasks.put(&models.TaskAssignment{
		ID: "B", EmployeeID: "w1", ProjectID: "p1", Date: testDate,
		Status: models.TaskPaused,
	})

	result, err := f.svc.ResumeTask("w1", "B", siteCenter, 10)
	require.NoError(t, err)
	require.Equal(t, models.TaskInProgress, result.Assignment.Status)
	require.Equal(t, "A", result.AutoPaused)
}

func TestLockContentionSurfacesConcurrencyError(t *testing.T) {
	f := newTrackingFixture(t)
	f.tasks.put(&models.TaskAssignment{
		ID: "A", EmployeeID: "w1", ProjectID: "p1", Date: testDate,
		Status: models.TaskInProgress,
	})

	release, ok := f.locks.TryAcquire("w1", testDate)
	require.True(t, ok)
	defer release()

	_, err := f.svc.PauseTask("w1", "A", "")
	require.Equal(t, apperrors.CodeConcurrentUpdate, apperrors.CodeOf(err))
}

// Hammer resume from many goroutines and verify the one-active-task
// invariant is never observably violated mid-flight, and exactly one
// assignment ends up active.
func TestConcurrentResumesKeepSingleActiveTask(t *testing.T) {
	f := newTrackingFixture(t)
	f.tasks.put(&models.TaskAssignment{
		ID: "A", EmployeeID: "w1", ProjectID: "p-open", Date: testDate,
		Status: models.TaskInProgress,
	})
	f.tasks.put(&models.TaskAssignment{
		ID: "B", EmployeeID: "w1", ProjectID: "p-open", Date: testDate,
		Status: models.TaskPaused,
	})
	f.tasks.put(&models.TaskAssignment{
		ID: "C", EmployeeID: "w1", ProjectID: "p-open", Date: testDate,
		Status: models.TaskPaused,
	})

	unexpected := make(chan error, 40)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		id := "B"
		if i%2 == 0 {
			id = "C"
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.ResumeTask("w1", id, siteCenter, 10)
			// Lock exhaustion is the only acceptable failure here
			if err != nil && apperrors.CodeOf(err) != apperrors.CodeConcurrentUpdate {
				unexpected <- err
			}
		}(id)
	}
	wg.Wait()
	close(unexpected)
	for err := range unexpected {
		t.Errorf("unexpected resume error: %v", err)
	}

	require.Zero(t, f.tasks.violations, "observed more than one IN_PROGRESS assignment")

	active := 0
	all, err := f.tasks.ListForWorkerDate("w1", testDate)
	require.NoError(t, err)
	for _, task := range all {
		if task.Status == models.TaskInProgress {
			active++
		}
	}
	require.Equal(t, 1, active)
}

func TestConcurrentStartAndResume(t *testing.T) {
	f := newTrackingFixture(t)
	f.tasks.put(&models.TaskAssignment{
		ID: "A", EmployeeID: "w1", ProjectID: "p-open", Date: testDate,
		Status: models.TaskQueued,
	})
	f.tasks.put(&models.TaskAssignment{
		ID: "B", EmployeeID: "w1", ProjectID: "p-open", Date: testDate,
		Status: models.TaskPaused,
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		start := i%2 == 0
		go func(start bool) {
			defer wg.Done()
			if start {
				f.svc.StartTask("w1", "A", siteCenter, 10)
			} else {
				f.svc.ResumeTask("w1", "B", siteCenter, 10)
			}
		}(start)
	}
	wg.Wait()

	require.Zero(t, f.tasks.violations, "observed more than one IN_PROGRESS assignment")
}
