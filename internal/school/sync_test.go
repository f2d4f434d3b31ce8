package school_test

import (
	"context"
	"testing"

	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGrades(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdateAndDelete", func(t *testing.T) {
		svc, store := newService(t, map[string][][]any{
			"Grades": {
				{"studentId", "subject", "score"},
				{1, "Math", 80},
				{2, "Math", 70},
				{2, "Art", 60},
			},
		})
		res, err := svc.SaveGrades(ctx, "Math", []school.GradeEntry{
			{StudentID: 1.0, Score: ptr(95)},
			{StudentID: 2.0, Score: nil},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"status": "success"}, res)
		assert.Equal(t, [][]any{
			{"studentId", "subject", "score"},
			{1.0, "Math", 95.0},
			{2.0, "Art", 60.0},
		}, sheetValues(t, store, "Grades"))
	})

	t.Run("AppendNewAndIgnoreUnknownNil", func(t *testing.T) {
		svc, store := newService(t, nil)
		_, err := svc.SaveGrades(ctx, "Math", []school.GradeEntry{
			{StudentID: "3", Score: ptr(88.5)},
			{StudentID: 4.0, Score: nil},
		})
		require.NoError(t, err)
		assert.Equal(t, [][]any{
			{"studentId", "subject", "score"},
			{"3", "Math", 88.5},
		}, sheetValues(t, store, "Grades"))
	})

	t.Run("SeveralDeletesKeepOtherRows", func(t *testing.T) {
		svc, store := newService(t, map[string][][]any{
			"Grades": {
				{"studentId", "subject", "score"},
				{1, "Math", 50},
				{2, "Math", 60},
				{3, "Math", 70},
				{4, "Math", 80},
			},
		})
		_, err := svc.SaveGrades(ctx, "Math", []school.GradeEntry{
			{StudentID: 1.0},
			{StudentID: 3.0},
			{StudentID: 3.0},
			{StudentID: 4.0, Score: ptr(81)},
		})
		require.NoError(t, err)
		assert.Equal(t, [][]any{
			{"studentId", "subject", "score"},
			{2.0, "Math", 60.0},
			{4.0, "Math", 81.0},
		}, sheetValues(t, store, "Grades"))
	})
}

func TestSaveAttendance(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, map[string][][]any{
		"Attendance": {
			{"studentId", "date", "status"},
			{1, "2025-03-01", "present"},
			{2, "2025-03-01", "absent"},
		},
	})

	res, err := svc.SaveAttendance(ctx, "2025-03-01", map[string]string{"2": "late", "10": "present", "3": "absent"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"savedRecords": []school.AttendanceRecord{
		{StudentID: 2, Date: "2025-03-01", Status: "late"},
		{StudentID: 3, Date: "2025-03-01", Status: "absent"},
		{StudentID: 10, Date: "2025-03-01", Status: "present"},
	}}, res)

	assert.Equal(t, [][]any{
		{"studentId", "date", "status"},
		{1.0, "2025-03-01", "present"},
		{2.0, "2025-03-01", "late"},
		{3.0, "2025-03-01", "absent"},
		{10.0, "2025-03-01", "present"},
	}, sheetValues(t, store, "Attendance"))

	// Same day again only overwrites.
	_, err = svc.SaveAttendance(ctx, "2025-03-01", map[string]string{"3": "present"})
	require.NoError(t, err)
	values := sheetValues(t, store, "Attendance")
	assert.Len(t, values, 5)
	assert.Equal(t, "present", values[3][2])

	t.Run("NonNumericID", func(t *testing.T) {
		_, err := svc.SaveAttendance(ctx, "2025-03-02", map[string]string{"abc": "present"})
		assert.ErrorIs(t, err, school.ErrInvalidPayload)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		before := sheetValues(t, store, "Attendance")
		_, err := svc.SaveAttendance(ctx, "2025-03-02", map[string]string{"1": "present", "2": "sick"})
		require.ErrorIs(t, err, school.ErrInvalidPayload)
		assert.Contains(t, err.Error(), `"sick"`)
		assert.Equal(t, before, sheetValues(t, store, "Attendance"), "nothing is written")
	})
}

func TestSaveGrades_ScoreRange(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)

	tests := []struct {
		name  string
		score float64
	}{
		{"AboveMax", 150},
		{"BelowMin", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveGrades(ctx, "Math", []school.GradeEntry{
				{StudentID: 1.0, Score: ptr(90)},
				{StudentID: 2.0, Score: ptr(tt.score)},
			})
			require.ErrorIs(t, err, school.ErrInvalidPayload)
			assert.Len(t, sheetValues(t, store, "Grades"), 1, "only the header")
		})
	}

	_, err := svc.SaveGrades(ctx, "Math", []school.GradeEntry{
		{StudentID: 1.0, Score: ptr(0)},
		{StudentID: 2.0, Score: ptr(100)},
	})
	require.NoError(t, err)
	assert.Len(t, sheetValues(t, store, "Grades"), 3)
}

func TestReadReceipts(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)

	res, err := svc.ReadAnnouncementIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"readAnnouncementIds": []any{}}, res)

	res, err = svc.MarkAnnouncementsRead(ctx, 5.0, []any{1.0, 2.0, 2.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "marked as read"}, res)

	_, err = svc.MarkAnnouncementsRead(ctx, "5", []any{"1", 3.0})
	require.NoError(t, err)

	values := sheetValues(t, store, "ReadReceipts")
	require.Len(t, values, 4)
	assert.Equal(t, []any{5.0, 1.0, "2025-03-04T10:30:00Z"}, values[1])
	assert.Equal(t, []any{"5", 3.0, "2025-03-04T10:30:00Z"}, values[3])

	res, err = svc.ReadAnnouncementIDs(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"readAnnouncementIds": []any{1.0, 2.0, 3.0}}, res)

	res, err = svc.ReadAnnouncementIDs(ctx, 6)
	require.NoError(t, err)
	assert.Empty(t, res["readAnnouncementIds"])
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminInfoAndLogin", func(t *testing.T) {
		svc, _ := newService(t, nil)
		info, err := svc.AdminInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, []school.Admin{{ID: 1, Name: "Admin", Username: "admin"}}, info)

		admin, err := svc.LoginAdmin(ctx, "admin", "secret")
		require.NoError(t, err)
		require.NotNil(t, admin)
		assert.Equal(t, "admin", admin.Username)

		admin, err = svc.LoginAdmin(ctx, "admin", "wrong")
		require.NoError(t, err)
		assert.Nil(t, admin)
	})

	t.Run("NoAdminConfigured", func(t *testing.T) {
		svc := school.NewService(rowstore.NewMemory(nil), nil, school.Options{})
		require.NoError(t, svc.Bootstrap(ctx, "", ""))
		info, err := svc.AdminInfo(ctx)
		require.NoError(t, err)
		assert.Empty(t, info)

		admin, err := svc.LoginAdmin(ctx, "", "")
		require.NoError(t, err)
		assert.Nil(t, admin)
	})

	t.Run("RegisterApproveLogin", func(t *testing.T) {
		svc, store := newService(t, nil)

		rec, err := svc.RegisterStudent(ctx, rowstore.Record{"username": "amal", "password": "x1", "name": "Amal", "status": "active"})
		require.NoError(t, err)
		assert.Equal(t, 1.0, rec["id"])
		assert.Equal(t, school.StatusPending, rec["status"])
		assert.NotContains(t, rec, "password")

		_, err = svc.LoginStudent(ctx, "amal", "x1")
		assert.ErrorIs(t, err, school.ErrAccountPending)

		_, err = svc.RegisterStudent(ctx, rowstore.Record{"username": "amal", "password": "zz"})
		assert.ErrorIs(t, err, school.ErrDuplicateUsername)

		approved, err := svc.ApproveStudent(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, school.StatusActive, approved["status"])
		assert.NotContains(t, approved, "password")

		student, err := svc.LoginStudent(ctx, "amal", "x1")
		require.NoError(t, err)
		require.NotNil(t, student)
		assert.Equal(t, "Amal", student["name"])
		assert.NotContains(t, student, "password")

		student, err = svc.LoginStudent(ctx, "amal", "nope")
		require.NoError(t, err)
		assert.Nil(t, student)

		all, err := svc.AllStudents(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.NotContains(t, all[0], "password")
		assert.Equal(t, "x1", sheetValues(t, store, "Students")[1][8])
	})

	t.Run("DisabledAccount", func(t *testing.T) {
		svc, _ := newService(t, map[string][][]any{
			"Students": {header(school.Students), {1, "badr", "Badr", 10, "A", "", "", "inactive", "pw"}},
		})
		_, err := svc.LoginStudent(ctx, "badr", "pw")
		assert.ErrorIs(t, err, school.ErrAccountDisabled)
	})

	t.Run("ApproveUnknown", func(t *testing.T) {
		svc, _ := newService(t, nil)
		_, err := svc.ApproveStudent(ctx, 42)
		assert.ErrorIs(t, err, school.ErrNotFound)
	})
}
