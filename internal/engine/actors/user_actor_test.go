package actors

import (
	"testing"

	"pollitago/internal/api"
	"pollitago/internal/middleware"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
)

func spawnUserSupervisor(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	middleware.SetJWTSecret("test-secret")
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewUserSupervisor(nil)
	}))
	return system, pid
}

func TestRegisterAndLogin(t *testing.T) {
	system, pid := spawnUserSupervisor(t)

	result := ask(t, system, pid, &RegisterUserMsg{
		Username: "pollfan",
		Email:    "fan@example.com",
		Password: "hunter22",
	})
	state, ok := result.(*UserState)
	assert.True(t, ok, "expected *UserState, got %T", result)
	assert.Equal(t, "pollfan", state.Username)
	assert.Equal(t, 0, state.Points)

	result = ask(t, system, pid, &LoginMsg{Email: "fan@example.com", Password: "hunter22"})
	login, ok := result.(*api.LoginResponse)
	assert.True(t, ok)
	assert.True(t, login.Success)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, state.ID.String(), login.UserID)

	claims, err := middleware.ValidateToken(login.Token)
	assert.NoError(t, err)
	assert.Equal(t, state.ID, claims.UserID)
}

func TestDuplicateEmailRejected(t *testing.T) {
	system, pid := spawnUserSupervisor(t)

	ask(t, system, pid, &RegisterUserMsg{
		Username: "first",
		Email:    "dup@example.com",
		Password: "password1",
	})
	result := ask(t, system, pid, &RegisterUserMsg{
		Username: "second",
		Email:    "dup@example.com",
		Password: "password2",
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrDuplicate, appErr.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	system, pid := spawnUserSupervisor(t)

	ask(t, system, pid, &RegisterUserMsg{
		Username: "careful",
		Email:    "careful@example.com",
		Password: "right-password",
	})
	result := ask(t, system, pid, &LoginMsg{Email: "careful@example.com", Password: "wrong-password"})
	login, ok := result.(*api.LoginResponse)
	assert.True(t, ok)
	assert.False(t, login.Success)
	assert.Empty(t, login.Token)
}

func TestLoginUnknownEmail(t *testing.T) {
	system, pid := spawnUserSupervisor(t)

	result := ask(t, system, pid, &LoginMsg{Email: "nobody@example.com", Password: "whatever"})
	login, ok := result.(*api.LoginResponse)
	assert.True(t, ok)
	assert.False(t, login.Success)
}

func TestPointsUpdate(t *testing.T) {
	system, pid := spawnUserSupervisor(t)

	result := ask(t, system, pid, &RegisterUserMsg{
		Username: "earner",
		Email:    "earner@example.com",
		Password: "password1",
	})
	state := result.(*UserState)

	system.Root.Send(pid, &UpdatePointsMsg{UserID: state.ID, Delta: 5})
	system.Root.Send(pid, &UpdatePointsMsg{UserID: state.ID, Delta: -2})

	// The supervisor forwards asynchronously; the profile read goes through
	// the same mailbox so it observes both updates.
	result = ask(t, system, pid, &GetUserProfileMsg{UserID: state.ID})
	profile, ok := result.(*UserState)
	assert.True(t, ok, "expected *UserState, got %T", result)
	assert.Equal(t, 3, profile.Points)
}

func TestSupervisorWarmStart(t *testing.T) {
	middleware.SetJWTSecret("test-secret")
	store := newMemoryDB()

	system := actor.NewActorSystem()
	first := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewUserSupervisor(store)
	}))
	result := ask(t, system, first, &RegisterUserMsg{
		Username: "returning",
		Email:    "returning@example.com",
		Password: "password1",
	})
	state := result.(*UserState)

	// A supervisor started over the same store serves logins and profiles
	// for users it never registered itself.
	second := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewUserSupervisor(store)
	}))
	result = ask(t, system, second, &LoginMsg{Email: "returning@example.com", Password: "password1"})
	login, ok := result.(*api.LoginResponse)
	assert.True(t, ok)
	assert.True(t, login.Success)
	assert.Equal(t, state.ID.String(), login.UserID)

	result = ask(t, system, second, &GetUserProfileMsg{UserID: state.ID})
	profile, ok := result.(*UserState)
	assert.True(t, ok, "expected *UserState, got %T", result)
	assert.Equal(t, "returning", profile.Username)
}
