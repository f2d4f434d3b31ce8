package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"schooldesk/internal/dispatch"
	"schooldesk/internal/school"
)

// Snapshot is everything the dashboard renders after login.
type Snapshot struct {
	Students      []map[string]any `json:"students"`
	Teachers      []map[string]any `json:"teachers"`
	Subjects      []map[string]any `json:"subjects"`
	Grades        []map[string]any `json:"grades"`
	Announcements []map[string]any `json:"announcements"`
	Attendance    []map[string]any `json:"attendance"`
	Admins        []school.Admin   `json:"admins"`
}

// Snapshot loads all tables in parallel and then the admin identity. The
// first failure cancels the rest; there is no partial snapshot.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	var s Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Call(gctx, dispatch.GetAllStudents, nil, &s.Students)
	})
	exports := []struct {
		table school.Table
		dst   *[]map[string]any
	}{
		{school.Teachers, &s.Teachers},
		{school.Subjects, &s.Subjects},
		{school.Grades, &s.Grades},
		{school.Announcements, &s.Announcements},
		{school.Attendance, &s.Attendance},
	}
	for _, e := range exports {
		g.Go(func() error {
			rows, err := c.ExportTable(gctx, e.table.Sheet)
			if err != nil {
				return err
			}
			*e.dst = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := c.Call(ctx, dispatch.GetAdminCredentials, nil, &s.Admins); err != nil {
		return nil, err
	}
	if s.Students == nil {
		s.Students = []map[string]any{}
	}
	if s.Admins == nil {
		s.Admins = []school.Admin{}
	}
	return &s, nil
}

// Identity is the result of a successful Login.
type Identity struct {
	Role    string
	Admin   *school.Admin
	Student map[string]any
}

// Login tries the admin credentials first and then the student accounts.
// A pending or disabled student account surfaces as a ServerError.
func (c *Client) Login(ctx context.Context, username, password string) (Identity, error) {
	creds := map[string]string{"username": username, "password": password}

	var admin *school.Admin
	if err := c.Call(ctx, dispatch.LoginAdmin, creds, &admin); err != nil {
		return Identity{}, err
	}
	if admin != nil {
		return Identity{Role: "admin", Admin: admin}, nil
	}

	var student map[string]any
	if err := c.Call(ctx, dispatch.LoginStudent, creds, &student); err != nil {
		return Identity{}, err
	}
	if student != nil {
		return Identity{Role: "student", Student: student}, nil
	}
	return Identity{}, ErrInvalidCredentials
}
