package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/repository"
	"cantine/internal/service"
)

type stubUsers struct {
	service.UserService
	created []*dto.CreateUserRequest
}

func (s *stubUsers) CreateUser(_ context.Context, req *dto.CreateUserRequest, _ string) (*dto.UserResponse, error) {
	if req.Role == model.RoleManager && req.EstablishmentID == "" {
		return nil, service.ErrEstablishmentNeeded
	}
	s.created = append(s.created, req)
	return &dto.UserResponse{ID: "user-1", Username: req.Username, Role: req.Role}, nil
}

type stubUserRepo struct {
	repository.UserRepository
	users map[string]*model.User
}

func (r *stubUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string, mustChange bool) error {
	for _, u := range r.users {
		if u.UserID == id {
			u.PasswordHash = hash
			u.MustChangePassword = mustChange
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubPlans struct {
	service.MealPlanService
	cleared bool
}

func (s *stubPlans) ClearAll(_ context.Context, p service.Principal) (int64, error) {
	s.cleared = true
	return 42, nil
}

func setup(t *testing.T, password string) (*commandLine, *stubUsers, *stubUserRepo, *stubPlans, *bytes.Buffer) {
	t.Helper()
	users := &stubUsers{}
	repo := &stubUserRepo{users: map[string]*model.User{
		"alice": {UserID: "u-alice", Username: "alice", MustChangePassword: true},
	}}
	plans := &stubPlans{}
	out := &bytes.Buffer{}
	cli := &commandLine{
		migrate:      func() error { return nil },
		users:        users,
		userRepo:     repo,
		plans:        plans,
		readPassword: func() ([]byte, error) { return []byte(password), nil },
		out:          out,
	}
	return cli, users, repo, plans, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, _, _, _ := setup(t, "s3cretpass")

	tests := []cliTest{
		{name: "no command", args: []string{}, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "adduser: no username", args: []string{"adduser", "-role", "ADMIN"}, wantErr: errHelp},
		{name: "adduser: bad role", args: []string{"adduser", "-username", "bob", "-role", "CHEF"}, wantErr: errHelp},
		{name: "resetpassword: no username", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "clearplans: not confirmed", args: []string{"clearplans"}, wantErr: errHelp},
		{name: "migrate", args: []string{"migrate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantErrStr != "" {
				assert.EqualError(t, err, tt.wantErrStr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_commandLine_migrateFailure(t *testing.T) {
	cli, _, _, _, _ := setup(t, "s3cretpass")
	cli.migrate = func() error { return errors.New("dirty database version 3") }

	assert.EqualError(t, cli.run([]string{"admin", "migrate"}), "dirty database version 3")
}

func Test_commandLine_adduser(t *testing.T) {
	cli, users, _, _, out := setup(t, "s3cretpass")

	err := cli.run([]string{"admin", "adduser", "-username", "root", "-role", "admin"})
	require.NoError(t, err)
	require.Len(t, users.created, 1)
	assert.Equal(t, "root", users.created[0].Username)
	assert.Equal(t, model.RoleAdmin, users.created[0].Role)
	assert.Equal(t, "s3cretpass", users.created[0].Password)
	assert.Contains(t, out.String(), "user root created")

	err = cli.run([]string{"admin", "adduser", "-username", "gerant", "-role", "MANAGER"})
	assert.ErrorIs(t, err, service.ErrEstablishmentNeeded)
}

func Test_commandLine_shortPassword(t *testing.T) {
	cli, users, _, _, _ := setup(t, "short")

	err := cli.run([]string{"admin", "adduser", "-username", "root", "-role", "ADMIN"})
	assert.EqualError(t, err, "password must be 8 to 72 characters")
	assert.Empty(t, users.created)
}

func Test_commandLine_resetpassword(t *testing.T) {
	cli, _, repo, _, _ := setup(t, "n3wpassword")

	require.NoError(t, cli.run([]string{"admin", "resetpassword", "-username", "alice"}))
	alice := repo.users["alice"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(alice.PasswordHash), []byte("n3wpassword")))
	assert.False(t, alice.MustChangePassword)

	err := cli.run([]string{"admin", "resetpassword", "-username", "nobody"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func Test_commandLine_clearplans(t *testing.T) {
	cli, _, _, plans, out := setup(t, "")

	require.NoError(t, cli.run([]string{"admin", "clearplans", "-yes"}))
	assert.True(t, plans.cleared)
	assert.Contains(t, out.String(), "42 meal plans deleted")
}
