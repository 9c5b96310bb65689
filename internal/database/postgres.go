// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DBAdapter defines the common interface for database operations.
// Both the PostgreSQL and MongoDB backends implement it.
type DBAdapter interface {
	// Connection
	Close(ctx context.Context) error

	// User methods
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	UpdateUserActivity(ctx context.Context, id uuid.UUID, active bool) error
	UpdateUserPoints(ctx context.Context, id uuid.UUID, delta int) error
	GetAllUsers(ctx context.Context) ([]*models.User, error)

	// Poll methods
	SavePoll(ctx context.Context, poll *models.Poll) error
	GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	GetRecentPolls(ctx context.Context, limit int) ([]*models.Poll, error)
	GetPollsByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Poll, error)
	// ApplyVote atomically records a ballot and increments the option and
	// total counts. It fails with ALREADY_VOTED when a ballot already exists
	// for (pollID, voterID); no counts change in that case.
	ApplyVote(ctx context.Context, pollID, optionID, voterID uuid.UUID) error
	GetPollBallots(ctx context.Context, pollID uuid.UUID) ([]*models.Ballot, error)
	SetPledgeOutcome(ctx context.Context, pollID uuid.UUID, outcome models.PledgeOutcome) error

	// Opinion methods
	SaveOpinion(ctx context.Context, opinion *models.Opinion) error
	GetOpinion(ctx context.Context, id uuid.UUID) (*models.Opinion, error)
	GetRecentOpinions(ctx context.Context, limit int) ([]*models.Opinion, error)

	// Engagement methods
	SetLike(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, userID uuid.UUID, liked bool) (bool, error)
	GetLikedTargets(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	RecordTip(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, tipperID uuid.UUID, amountCents int64, sessionID string) error

	// Comment methods
	SaveComment(ctx context.Context, comment *models.Comment) error
	GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error)
}

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Ping the database to verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL!")

	return &PostgresDB{
		DB: db,
	}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	log.Println("Closing PostgreSQL connection...")
	return p.DB.Close()
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	// Users table
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			avatar_url VARCHAR(255) DEFAULT '' NOT NULL,
			points INTEGER DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			is_connected BOOLEAN DEFAULT FALSE NOT NULL,
			last_active TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	// Polls table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS polls (
			id UUID PRIMARY KEY,
			creator_id UUID REFERENCES users(id),
			question VARCHAR(300) NOT NULL,
			total_votes INTEGER DEFAULT 0,
			deadline TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			pledge_amount NUMERIC(12,2) DEFAULT 0,
			pledge_outcome VARCHAR(20) DEFAULT 'pending',
			like_count INTEGER DEFAULT 0,
			comment_count INTEGER DEFAULT 0,
			tip_count INTEGER DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create polls table: %v", err)
	}

	// Poll options table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS poll_options (
			id UUID PRIMARY KEY,
			poll_id UUID REFERENCES polls(id),
			position INTEGER NOT NULL,
			text VARCHAR(120) NOT NULL,
			votes INTEGER DEFAULT 0,
			media_urls TEXT[] DEFAULT '{}' NOT NULL,
			affiliate_link VARCHAR(255) DEFAULT '' NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create poll_options table: %v", err)
	}

	// Ballots table. The uniqueness constraint is what makes one-vote-per-
	// viewer hold under concurrent requests.
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ballots (
			poll_id UUID REFERENCES polls(id),
			voter_id UUID REFERENCES users(id),
			option_id UUID REFERENCES poll_options(id),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (poll_id, voter_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create ballots table: %v", err)
	}

	// Opinions table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS opinions (
			id UUID PRIMARY KEY,
			creator_id UUID REFERENCES users(id),
			text TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			like_count INTEGER DEFAULT 0,
			comment_count INTEGER DEFAULT 0,
			tip_count INTEGER DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create opinions table: %v", err)
	}

	// Likes table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS likes (
			target_id UUID NOT NULL,
			kind VARCHAR(20) NOT NULL,
			user_id UUID REFERENCES users(id),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (target_id, kind, user_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create likes table: %v", err)
	}

	// Tips table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tips (
			session_id VARCHAR(255) PRIMARY KEY,
			target_id UUID NOT NULL,
			kind VARCHAR(20) NOT NULL,
			tipper_id UUID REFERENCES users(id),
			amount_cents BIGINT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tips table: %v", err)
	}

	// Comments table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			post_id UUID NOT NULL,
			author_id UUID REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create comments table: %v", err)
	}

	return nil
}

// --- User Methods ---

// GetUserByEmail fetches a user by their email address.
func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, avatar_url, points, created_at, updated_at, is_connected, last_active FROM users WHERE email = $1`
	var user models.User
	err := p.DB.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by email", err)
	}
	return &user, nil
}

// GetUser fetches a user by their ID.
func (p *PostgresDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, avatar_url, points, created_at, updated_at, is_connected, last_active FROM users WHERE id = $1`
	var user models.User
	err := p.DB.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by id", err)
	}
	return &user, nil
}

// SaveUser inserts a new user into the database.
func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastActive.IsZero() {
		user.LastActive = now // Default last active to creation time
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, avatar_url, points, created_at, updated_at, is_connected, last_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := p.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.HashedPassword,
		user.AvatarURL,
		user.Points,
		user.CreatedAt,
		user.UpdatedAt,
		user.IsConnected,
		user.LastActive,
	)

	if err != nil {
		// Check for duplicate key violation (username or email)
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrDuplicate, fmt.Sprintf("user already exists: %v", pqErr.Constraint), err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to save user", err)
	}
	return nil
}

// UpdateUserActivity updates the user's last active time and connection status.
func (p *PostgresDB) UpdateUserActivity(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE users SET last_active = NOW(), is_connected = $1, updated_at = NOW() WHERE id = $2`
	result, err := p.DB.ExecContext(ctx, query, active, id)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update user activity", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to get rows affected after update", err)
	}
	if rowsAffected == 0 {
		return utils.NewAppError(utils.ErrNotFound, "user not found for activity update", nil)
	}
	return nil
}

// UpdateUserPoints adjusts a user's point balance by delta.
func (p *PostgresDB) UpdateUserPoints(ctx context.Context, id uuid.UUID, delta int) error {
	query := `UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2`
	result, err := p.DB.ExecContext(ctx, query, delta, id)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update user points", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return utils.NewAppError(utils.ErrNotFound, "user not found for points update", nil)
	}
	return nil
}

// GetAllUsers fetches all users from the database.
func (p *PostgresDB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT id, username, email, password_hash, avatar_url, points, created_at, updated_at, is_connected, last_active FROM users ORDER BY created_at DESC`
	users := []*models.User{}
	err := p.DB.SelectContext(ctx, &users, query)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query all users", err)
	}
	return users, nil
}

// --- Poll Methods ---

// SavePoll inserts a new poll or updates the mutable columns of an existing one.
func (p *PostgresDB) SavePoll(ctx context.Context, poll *models.Poll) error {
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now()
	}
	if poll.PledgeOutcome == "" {
		poll.PledgeOutcome = models.PledgePending
	}

	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	query := `
		INSERT INTO polls (id, creator_id, question, total_votes, deadline, created_at, pledge_amount, pledge_outcome, like_count, comment_count, tip_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			total_votes = EXCLUDED.total_votes,
			pledge_outcome = EXCLUDED.pledge_outcome,
			like_count = EXCLUDED.like_count,
			comment_count = EXCLUDED.comment_count,
			tip_count = EXCLUDED.tip_count
	`
	// Note: question, deadline and pledge_amount are immutable after creation
	_, err = tx.ExecContext(ctx, query,
		poll.ID, poll.CreatorID, poll.Question, poll.TotalVotes, poll.Deadline,
		poll.CreatedAt, poll.PledgeAmount, poll.PledgeOutcome,
		poll.LikeCount, poll.CommentCount, poll.TipCount,
	)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save poll", err)
	}

	optQuery := `
		INSERT INTO poll_options (id, poll_id, position, text, votes, media_urls, affiliate_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET votes = EXCLUDED.votes
	`
	for i, opt := range poll.Options {
		if _, err := tx.ExecContext(ctx, optQuery, opt.ID, poll.ID, i, opt.Text, opt.Votes, pq.Array(opt.MediaURLs), opt.AffiliateLink); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to save poll option", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to commit poll save", err)
	}
	return nil
}

// GetPoll fetches a poll with its options in creation order.
func (p *PostgresDB) GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	query := `SELECT
			p.id, p.creator_id, p.question, p.total_votes, p.deadline, p.created_at,
			p.pledge_amount, p.pledge_outcome, p.like_count, p.comment_count, p.tip_count,
			COALESCE(u.username, '') AS creator_username
		FROM polls p
		LEFT JOIN users u ON p.creator_id = u.id
		WHERE p.id = $1`
	var poll models.Poll
	err := p.DB.GetContext(ctx, &poll, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "poll not found", err)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query poll by id", err)
	}

	if err := p.attachOptions(ctx, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}

// GetRecentPolls fetches polls newest-first. A non-positive limit returns
// every poll; the startup load depends on that.
func (p *PostgresDB) GetRecentPolls(ctx context.Context, limit int) ([]*models.Poll, error) {
	query := `SELECT
			p.id, p.creator_id, p.question, p.total_votes, p.deadline, p.created_at,
			p.pledge_amount, p.pledge_outcome, p.like_count, p.comment_count, p.tip_count,
			COALESCE(u.username, '') AS creator_username
		FROM polls p
		LEFT JOIN users u ON p.creator_id = u.id
		ORDER BY p.created_at DESC`
	polls := []*models.Poll{}
	var err error
	if limit > 0 {
		err = p.DB.SelectContext(ctx, &polls, query+` LIMIT $1`, limit)
	} else {
		err = p.DB.SelectContext(ctx, &polls, query)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query recent polls", err)
	}
	for _, poll := range polls {
		if err := p.attachOptions(ctx, poll); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

// GetPollsByCreator fetches one creator's polls newest-first.
func (p *PostgresDB) GetPollsByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Poll, error) {
	query := `SELECT
			p.id, p.creator_id, p.question, p.total_votes, p.deadline, p.created_at,
			p.pledge_amount, p.pledge_outcome, p.like_count, p.comment_count, p.tip_count,
			COALESCE(u.username, '') AS creator_username
		FROM polls p
		LEFT JOIN users u ON p.creator_id = u.id
		WHERE p.creator_id = $1
		ORDER BY p.created_at DESC`
	polls := []*models.Poll{}
	if err := p.DB.SelectContext(ctx, &polls, query, creatorID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query polls by creator", err)
	}
	for _, poll := range polls {
		if err := p.attachOptions(ctx, poll); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (p *PostgresDB) attachOptions(ctx context.Context, poll *models.Poll) error {
	query := `SELECT id, text, votes, media_urls, affiliate_link FROM poll_options WHERE poll_id = $1 ORDER BY position`
	rows := []struct {
		ID            uuid.UUID      `db:"id"`
		Text          string         `db:"text"`
		Votes         int            `db:"votes"`
		MediaURLs     pq.StringArray `db:"media_urls"`
		AffiliateLink string         `db:"affiliate_link"`
	}{}
	if err := p.DB.SelectContext(ctx, &rows, query, poll.ID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to query poll options", err)
	}
	poll.Options = make([]*models.PollOption, 0, len(rows))
	for _, row := range rows {
		poll.Options = append(poll.Options, &models.PollOption{
			ID:            row.ID,
			Text:          row.Text,
			Votes:         row.Votes,
			MediaURLs:     row.MediaURLs,
			AffiliateLink: row.AffiliateLink,
		})
	}
	return nil
}

// ApplyVote records a ballot and bumps the counts in one transaction. The
// ballot insert is the atomic check-and-set: ON CONFLICT DO NOTHING on the
// (poll_id, voter_id) primary key means a concurrent duplicate loses cleanly.
func (p *PostgresDB) ApplyVote(ctx context.Context, pollID, optionID, voterID uuid.UUID) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	ballotQuery := `
		INSERT INTO ballots (poll_id, voter_id, option_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (poll_id, voter_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, ballotQuery, pollID, voterID, optionID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to insert ballot", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to get rows affected for ballot", err)
	}
	if inserted == 0 {
		return utils.NewAppError(utils.ErrAlreadyVoted, "viewer has already voted on this poll", nil)
	}

	optionQuery := `UPDATE poll_options SET votes = votes + 1 WHERE id = $1 AND poll_id = $2`
	result, err = tx.ExecContext(ctx, optionQuery, optionID, pollID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to increment option votes", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return utils.NewAppError(utils.ErrNotFound, "option does not belong to poll", nil)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE polls SET total_votes = total_votes + 1 WHERE id = $1`, pollID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to increment poll total votes", err)
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to commit vote", err)
	}
	return nil
}

// GetPollBallots fetches every ballot cast on a poll.
func (p *PostgresDB) GetPollBallots(ctx context.Context, pollID uuid.UUID) ([]*models.Ballot, error) {
	query := `SELECT poll_id, voter_id, option_id, created_at FROM ballots WHERE poll_id = $1`
	ballots := []*models.Ballot{}
	if err := p.DB.SelectContext(ctx, &ballots, query, pollID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query ballots", err)
	}
	return ballots, nil
}

// SetPledgeOutcome records the creator's terminal decision. The WHERE clause
// repeats the precondition so two racing decisions cannot both land.
func (p *PostgresDB) SetPledgeOutcome(ctx context.Context, pollID uuid.UUID, outcome models.PledgeOutcome) error {
	query := `
		UPDATE polls SET pledge_outcome = $1
		WHERE id = $2 AND pledge_outcome = 'pending' AND pledge_amount > 0 AND deadline <= NOW()
	`
	result, err := p.DB.ExecContext(ctx, query, outcome, pollID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to set pledge outcome", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return utils.NewAppError(utils.ErrPledgeDecided, "pledge outcome not updatable (already decided, no pledge, or poll still open)", nil)
	}
	return nil
}

// --- Opinion Methods ---

// SaveOpinion inserts a new opinion or updates its counters.
func (p *PostgresDB) SaveOpinion(ctx context.Context, opinion *models.Opinion) error {
	if opinion.CreatedAt.IsZero() {
		opinion.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO opinions (id, creator_id, text, created_at, like_count, comment_count, tip_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			like_count = EXCLUDED.like_count,
			comment_count = EXCLUDED.comment_count,
			tip_count = EXCLUDED.tip_count
	`
	_, err := p.DB.ExecContext(ctx, query,
		opinion.ID, opinion.CreatorID, opinion.Text, opinion.CreatedAt,
		opinion.LikeCount, opinion.CommentCount, opinion.TipCount,
	)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save opinion", err)
	}
	return nil
}

// GetOpinion fetches an opinion by ID.
func (p *PostgresDB) GetOpinion(ctx context.Context, id uuid.UUID) (*models.Opinion, error) {
	query := `SELECT
			o.id, o.creator_id, o.text, o.created_at, o.like_count, o.comment_count, o.tip_count,
			COALESCE(u.username, '') AS creator_username
		FROM opinions o
		LEFT JOIN users u ON o.creator_id = u.id
		WHERE o.id = $1`
	var opinion models.Opinion
	err := p.DB.GetContext(ctx, &opinion, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "opinion not found", err)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query opinion by id", err)
	}
	return &opinion, nil
}

// GetRecentOpinions fetches opinions newest-first. A non-positive limit
// returns every opinion.
func (p *PostgresDB) GetRecentOpinions(ctx context.Context, limit int) ([]*models.Opinion, error) {
	query := `SELECT
			o.id, o.creator_id, o.text, o.created_at, o.like_count, o.comment_count, o.tip_count,
			COALESCE(u.username, '') AS creator_username
		FROM opinions o
		LEFT JOIN users u ON o.creator_id = u.id
		ORDER BY o.created_at DESC`
	opinions := []*models.Opinion{}
	var err error
	if limit > 0 {
		err = p.DB.SelectContext(ctx, &opinions, query+` LIMIT $1`, limit)
	} else {
		err = p.DB.SelectContext(ctx, &opinions, query)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query recent opinions", err)
	}
	return opinions, nil
}

// --- Engagement Methods ---

// SetLike records or removes a like and keeps the target's like count in
// step. Returns whether anything actually changed (a repeated like or a
// missing unlike is a no-op).
func (p *PostgresDB) SetLike(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, userID uuid.UUID, liked bool) (bool, error) {
	table := "polls"
	if kind == models.LikeOpinion {
		table = "opinions"
	}

	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var result sql.Result
	if liked {
		result, err = tx.ExecContext(ctx,
			`INSERT INTO likes (target_id, kind, user_id, created_at) VALUES ($1, $2, $3, NOW()) ON CONFLICT (target_id, kind, user_id) DO NOTHING`,
			targetID, kind, userID)
	} else {
		result, err = tx.ExecContext(ctx,
			`DELETE FROM likes WHERE target_id = $1 AND kind = $2 AND user_id = $3`,
			targetID, kind, userID)
	}
	if err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "failed to update like record", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	delta := 1
	if !liked {
		delta = -1
	}
	countQuery := fmt.Sprintf(`UPDATE %s SET like_count = like_count + $1 WHERE id = $2`, table)
	if _, err := tx.ExecContext(ctx, countQuery, delta, targetID); err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "failed to update like count", err)
	}

	if err := tx.Commit(); err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "failed to commit like", err)
	}
	return true, nil
}

// GetLikedTargets returns the set of target IDs the user has liked.
func (p *PostgresDB) GetLikedTargets(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	query := `SELECT target_id FROM likes WHERE user_id = $1`
	var ids []uuid.UUID
	if err := p.DB.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query liked targets", err)
	}
	liked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// RecordTip stores a completed checkout tip and bumps the target's tip count.
// session_id is the primary key, so a replayed webhook does not double count.
func (p *PostgresDB) RecordTip(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, tipperID uuid.UUID, amountCents int64, sessionID string) error {
	table := "polls"
	if kind == models.LikeOpinion {
		table = "opinions"
	}

	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO tips (session_id, target_id, kind, tipper_id, amount_cents, created_at) VALUES ($1, $2, $3, $4, $5, NOW()) ON CONFLICT (session_id) DO NOTHING`,
		sessionID, targetID, kind, tipperID, amountCents)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to record tip", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return utils.NewAppError(utils.ErrDuplicate, "tip already recorded for this session", nil)
	}

	countQuery := fmt.Sprintf(`UPDATE %s SET tip_count = tip_count + 1 WHERE id = $1`, table)
	if _, err := tx.ExecContext(ctx, countQuery, targetID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update tip count", err)
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to commit tip", err)
	}
	return nil
}

// --- Comment Methods ---

// SaveComment inserts a comment and bumps the parent post's comment count.
// The parent may be a poll or an opinion; whichever table matches wins.
func (p *PostgresDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}

	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO comments (id, post_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query, comment.ID, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save comment", err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE polls SET comment_count = comment_count + 1 WHERE id = $1`, comment.PostID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update poll comment count", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE opinions SET comment_count = comment_count + 1 WHERE id = $1`, comment.PostID); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to update opinion comment count", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to commit comment", err)
	}
	return nil
}

// GetPostComments fetches a post's comments newest-first.
func (p *PostgresDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	query := `SELECT
			c.id, c.post_id, c.author_id, c.content, c.created_at,
			COALESCE(u.username, '') AS author_username
		FROM comments c
		LEFT JOIN users u ON c.author_id = u.id
		WHERE c.post_id = $1
		ORDER BY c.created_at DESC`
	comments := []*models.Comment{}
	if err := p.DB.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query post comments", err)
	}
	return comments, nil
}
