package school

import (
	"context"
	"fmt"

	"schooldesk/internal/rowstore"
)

// adminCredentials reads A1 (username) and A2 (password) of the admin sheet.
func (s *Service) adminCredentials(ctx context.Context) (username, password string, err error) {
	_, values, err := s.read(ctx, s.adminSheet)
	if err != nil {
		return "", "", err
	}
	if len(values) > 0 {
		username = rowstore.Text(rowstore.Cell(values[0], 0))
	}
	if len(values) > 1 {
		password = rowstore.Text(rowstore.Cell(values[1], 0))
	}
	return username, password, nil
}

// AdminInfo lists the admin identity, or nothing when no admin is set up.
func (s *Service) AdminInfo(ctx context.Context) ([]Admin, error) {
	username, _, err := s.adminCredentials(ctx)
	if err != nil {
		return nil, err
	}
	if username == "" {
		return []Admin{}, nil
	}
	return []Admin{{ID: 1, Name: "Admin", Username: username}}, nil
}

// LoginAdmin returns the admin identity, or nil when the credentials do not
// match. A nil result is not an error; callers go on to try a student login.
func (s *Service) LoginAdmin(ctx context.Context, username, password string) (*Admin, error) {
	user, pass, err := s.adminCredentials(ctx)
	if err != nil {
		return nil, err
	}
	if user == "" || pass == "" || user != username || pass != password {
		return nil, nil
	}
	return &Admin{ID: 1, Name: "Admin", Username: user}, nil
}

// AllStudents returns every student without passwords.
func (s *Service) AllStudents(ctx context.Context) ([]rowstore.Record, error) {
	_, values, err := s.read(ctx, Students.Sheet)
	if err != nil {
		return nil, err
	}
	recs := rowstore.Records(values)
	for i, r := range recs {
		recs[i] = withoutPassword(r)
	}
	return recs, nil
}

// LoginStudent matches username and password exactly. No match yields nil;
// a matching pending or inactive account is an error.
func (s *Service) LoginStudent(ctx context.Context, username, password string) (rowstore.Record, error) {
	_, values, err := s.read(ctx, Students.Sheet)
	if err != nil {
		return nil, err
	}
	for _, rec := range rowstore.Records(values) {
		if rowstore.Text(rec["username"]) != username || rowstore.Text(rec[rowstore.PasswordColumn]) != password {
			continue
		}
		switch rowstore.Text(rec["status"]) {
		case StatusPending:
			return nil, ErrAccountPending
		case StatusInactive:
			return nil, ErrAccountDisabled
		}
		return withoutPassword(rec), nil
	}
	return nil, nil
}

// RegisterStudent adds a pending student after checking the username is free.
func (s *Service) RegisterStudent(ctx context.Context, item rowstore.Record) (rowstore.Record, error) {
	username := rowstore.Text(item["username"])
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidPayload)
	}
	_, values, err := s.read(ctx, Students.Sheet)
	if err != nil {
		return nil, err
	}
	for _, rec := range rowstore.Records(values) {
		if rowstore.Text(rec["username"]) == username {
			return nil, ErrDuplicateUsername
		}
	}
	item["status"] = StatusPending
	return s.Add(ctx, Students, item)
}
