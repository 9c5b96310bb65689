package actors

import (
	stdctx "context"
	"log"
	"sync"
	"time"

	"pollitago/internal/api"
	"pollitago/internal/database"
	"pollitago/internal/middleware"
	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserSupervisor manages all user actors
type UserSupervisor struct {
	userActors map[uuid.UUID]*actor.PID
	emailToID  map[string]uuid.UUID
	mu         sync.RWMutex
	db         database.DBAdapter
}

func NewUserSupervisor(db database.DBAdapter) actor.Actor {
	return &UserSupervisor{
		userActors: make(map[uuid.UUID]*actor.PID),
		emailToID:  make(map[string]uuid.UUID),
		db:         db,
	}
}

// Message types for User operations
type (
	RegisterUserMsg struct {
		Username  string
		Email     string
		Password  string
		AvatarURL string
	}

	LoginMsg struct {
		Email    string
		Password string
	}

	GetUserProfileMsg struct {
		UserID uuid.UUID
	}

	UpdatePointsMsg struct {
		UserID uuid.UUID
		Delta  int
	}

	DisconnectUserMsg struct {
		UserID uuid.UUID
	}

	// IncrementCommentCountMsg is routed by the engine to whichever post
	// actor owns the target; the non-owner ignores it.
	IncrementCommentCountMsg struct {
		PostID uuid.UUID
	}
)

// UserState is the actor-local copy of a user record.
type UserState struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	Points         int       `json:"points"`
	IsConnected    bool      `json:"isConnected"`
	LastActive     time.Time `json:"lastActive"`
	HashedPassword string    `json:"-"`
}

func (s *UserSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		s.warmStart()

	case *RegisterUserMsg:
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, taken := s.emailToID[msg.Email]; taken {
			context.Respond(utils.NewAppError(utils.ErrDuplicate, "Email already registered", nil))
			return
		}
		if s.db != nil {
			existing, _ := s.db.GetUserByEmail(stdctx.Background(), msg.Email)
			if existing != nil {
				log.Printf("UserSupervisor: Email already registered: %s", msg.Email)
				context.Respond(utils.NewAppError(utils.ErrDuplicate, "Email already registered", nil))
				return
			}
		}

		userID := uuid.New()
		props := actor.PropsFromProducer(func() actor.Actor {
			return NewUserActor(userID, s.db)
		})

		pid := context.Spawn(props)
		s.userActors[userID] = pid
		s.emailToID[msg.Email] = userID

		future := context.RequestFuture(pid, msg, 5*time.Second)
		result, err := future.Result()
		if err != nil {
			log.Printf("UserSupervisor: Failed to create user: %v", err)
			context.Respond(utils.NewAppError(utils.ErrActorTimeout, "User creation failed", err))
			return
		}
		context.Respond(result)

	case *LoginMsg:
		log.Printf("UserSupervisor: Processing login request for email: %s", msg.Email)

		pid, err := s.actorForEmail(context, msg.Email)
		if err != nil {
			context.Respond(&api.LoginResponse{Success: false, Error: "Invalid credentials"})
			return
		}

		future := context.RequestFuture(pid, msg, 5*time.Second)
		result, err := future.Result()
		if err != nil {
			log.Printf("UserSupervisor: Login request to user actor failed: %v", err)
			context.Respond(&api.LoginResponse{Success: false, Error: "Login failed"})
			return
		}
		context.Respond(result)

	case *GetUserProfileMsg:
		pid, err := s.getOrCreateUserActor(context, msg.UserID)
		if err != nil {
			context.Respond(utils.NewUserNotFoundError(msg.UserID.String()))
			return
		}

		future := context.RequestFuture(pid, msg, 5*time.Second)
		result, err := future.Result()
		if err != nil {
			context.Respond(utils.NewAppError(utils.ErrActorTimeout, "Failed to get profile", err))
			return
		}
		context.Respond(result)

	case *UpdatePointsMsg:
		pid, err := s.getOrCreateUserActor(context, msg.UserID)
		if err != nil {
			log.Printf("UserSupervisor: User %s not found for points update", msg.UserID)
			return
		}
		context.Send(pid, msg)

	case *DisconnectUserMsg:
		s.mu.RLock()
		pid, exists := s.userActors[msg.UserID]
		s.mu.RUnlock()
		if !exists {
			context.Respond(utils.NewUserNotFoundError(msg.UserID.String()))
			return
		}
		context.RequestWithCustomSender(pid, msg, context.Sender())
	}
}

// warmStart primes the email index from the database so logins after a
// restart resolve without a per-email fallback lookup. Actors themselves are
// still spawned on demand.
func (s *UserSupervisor) warmStart() {
	if s.db == nil {
		return
	}
	users, err := s.db.GetAllUsers(stdctx.Background())
	if err != nil {
		log.Printf("UserSupervisor: Failed to warm user index: %v", err)
		return
	}
	s.mu.Lock()
	for _, user := range users {
		s.emailToID[user.Email] = user.ID
	}
	s.mu.Unlock()
	log.Printf("UserSupervisor: Indexed %d users from database", len(users))
}

func (s *UserSupervisor) actorForEmail(context actor.Context, email string) (*actor.PID, error) {
	s.mu.RLock()
	userID, known := s.emailToID[email]
	s.mu.RUnlock()

	if known {
		return s.getOrCreateUserActor(context, userID)
	}

	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "unknown email", nil)
	}

	user, err := s.db.GetUserByEmail(stdctx.Background(), email)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.emailToID[email] = user.ID
	s.mu.Unlock()

	return s.getOrCreateUserActor(context, user.ID)
}

func (s *UserSupervisor) getOrCreateUserActor(context actor.Context, userID uuid.UUID) (*actor.PID, error) {
	s.mu.RLock()
	pid, exists := s.userActors[userID]
	s.mu.RUnlock()

	if exists {
		return pid, nil
	}

	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "unknown user", nil)
	}

	user, err := s.db.GetUser(stdctx.Background(), userID)
	if err != nil {
		return nil, err
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(user.ID, s.db)
	})
	pid = context.Spawn(props)

	s.mu.Lock()
	s.userActors[user.ID] = pid
	s.emailToID[user.Email] = user.ID
	s.mu.Unlock()

	return pid, nil
}

// UserActor owns the state of a single user.
type UserActor struct {
	id    uuid.UUID
	state *UserState
	db    database.DBAdapter
}

func NewUserActor(id uuid.UUID, db database.DBAdapter) *UserActor {
	return &UserActor{
		id: id,
		state: &UserState{
			ID:         id,
			LastActive: time.Now(),
		},
		db: db,
	}
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *RegisterUserMsg:
		hashedPassword, err := hashPassword(msg.Password)
		if err != nil {
			context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Failed to hash password", err))
			return
		}

		a.state.Username = msg.Username
		a.state.Email = msg.Email
		a.state.AvatarURL = msg.AvatarURL
		a.state.HashedPassword = hashedPassword
		a.state.IsConnected = true
		a.state.LastActive = time.Now()

		user := &models.User{
			ID:             a.state.ID,
			Username:       a.state.Username,
			Email:          a.state.Email,
			HashedPassword: hashedPassword,
			AvatarURL:      a.state.AvatarURL,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
			LastActive:     time.Now(),
			IsConnected:    true,
		}

		if a.db != nil {
			if err := a.db.SaveUser(stdctx.Background(), user); err != nil {
				log.Printf("UserActor: Failed to save user: %v", err)
				context.Respond(err)
				return
			}
		}

		log.Printf("UserActor: Created user %s (%s)", a.state.ID, a.state.Username)

		context.Respond(&UserState{
			ID:        a.state.ID,
			Username:  a.state.Username,
			Email:     a.state.Email,
			AvatarURL: a.state.AvatarURL,
			Points:    a.state.Points,
		})

	case *LoginMsg:
		hashed := a.state.HashedPassword
		if a.db != nil {
			user, err := a.db.GetUserByEmail(stdctx.Background(), msg.Email)
			if err != nil {
				log.Printf("UserActor: Login failed, user lookup error: %v", err)
				context.Respond(&api.LoginResponse{Success: false, Error: "Invalid credentials"})
				return
			}
			hashed = user.HashedPassword
			a.state.Username = user.Username
			a.state.Points = user.Points
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(msg.Password)); err != nil {
			log.Printf("UserActor: Login failed, password mismatch for %s", msg.Email)
			context.Respond(&api.LoginResponse{Success: false, Error: "Invalid credentials"})
			return
		}

		token, err := middleware.GenerateToken(a.state.ID)
		if err != nil {
			log.Printf("UserActor: Failed to generate token: %v", err)
			context.Respond(&api.LoginResponse{Success: false, Error: "Authentication error"})
			return
		}

		if a.db != nil {
			if err := a.db.UpdateUserActivity(stdctx.Background(), a.state.ID, true); err != nil {
				log.Printf("UserActor: Warning, failed to update user activity: %v", err)
			}
		}

		a.state.IsConnected = true
		a.state.LastActive = time.Now()

		log.Printf("UserActor: Login successful for user: %s", a.state.Username)
		context.Respond(&api.LoginResponse{
			Success:  true,
			Token:    token,
			UserID:   a.state.ID.String(),
			Username: a.state.Username,
		})

	case *GetUserProfileMsg:
		if a.db != nil {
			user, err := a.db.GetUser(stdctx.Background(), msg.UserID)
			if err != nil {
				if utils.IsErrorCode(err, utils.ErrNotFound) {
					context.Respond(nil)
					return
				}
				context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to fetch user", err))
				return
			}
			a.state.Username = user.Username
			a.state.Email = user.Email
			a.state.AvatarURL = user.AvatarURL
			a.state.Points = user.Points
			a.state.IsConnected = user.IsConnected
			a.state.LastActive = user.LastActive
		}
		snapshot := *a.state
		context.Respond(&snapshot)

	case *UpdatePointsMsg:
		if a.state.ID != msg.UserID {
			return
		}
		a.state.Points += msg.Delta
		if a.db != nil {
			if err := a.db.UpdateUserPoints(stdctx.Background(), msg.UserID, msg.Delta); err != nil {
				log.Printf("UserActor: Failed to persist points for %s: %v", msg.UserID, err)
			}
		}

	case *DisconnectUserMsg:
		a.state.IsConnected = false
		if a.db != nil {
			if err := a.db.UpdateUserActivity(stdctx.Background(), a.state.ID, false); err != nil {
				log.Printf("UserActor: Warning, failed to update user activity: %v", err)
			}
		}
		context.Respond(true)
	}
}
