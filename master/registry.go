package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/MekelWibi/SumoProjectKP/relay"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	joinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	joinCodeAttempts = 8
)

var errBadRequest = errors.New("bad request")

// Registry stores identities and allocations and expires allocations whose
// host stopped sending heartbeats.
type Registry struct {
	db             *gorm.DB
	ttl            time.Duration
	maxConnections int
	log            zerolog.Logger
	now            func() time.Time
	stopCh         chan struct{}
}

func NewRegistry(db *gorm.DB, ttl time.Duration, maxConnections int, log zerolog.Logger) *Registry {
	return &Registry{
		db:             db,
		ttl:            ttl,
		maxConnections: maxConnections,
		log:            log,
		now:            time.Now,
		stopCh:         make(chan struct{}),
	}
}

// Start runs the expiry loop until Stop.
func (r *Registry) Start(interval time.Duration) {
	go r.cleanupLoop(interval)
}

func (r *Registry) Stop() {
	close(r.stopCh)
}

// SignIn creates an anonymous identity and returns its id and bearer token.
func (r *Registry) SignIn() (string, string, error) {
	id := identity{ID: uuid.NewString(), Token: uuid.NewString()}
	if err := r.db.Create(&id).Error; err != nil {
		return "", "", fmt.Errorf("create identity: %w", err)
	}
	return id.ID, id.Token, nil
}

// Authenticate returns the identity id for a bearer token.
func (r *Registry) Authenticate(token string) (string, error) {
	if token == "" {
		return "", relay.ErrUnauthorized
	}
	var id identity
	err := r.db.Where("token = ?", token).First(&id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", relay.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("find identity: %w", err)
	}
	return id.ID, nil
}

// Create reserves an allocation owned by owner. A non-positive size asks for
// the broker's limit.
func (r *Registry) Create(owner string, maxConnections int) (allocation, error) {
	if maxConnections > r.maxConnections {
		return allocation{}, fmt.Errorf("%w: maxConnections %d exceeds limit %d", errBadRequest, maxConnections, r.maxConnections)
	}
	if maxConnections <= 0 {
		maxConnections = r.maxConnections
	}

	code, err := r.uniqueJoinCode()
	if err != nil {
		return allocation{}, err
	}

	a := allocation{
		ID:             uuid.NewString(),
		OwnerID:        owner,
		JoinCode:       code,
		MaxConnections: maxConnections,
		LastSeen:       r.now(),
	}
	if err := r.db.Create(&a).Error; err != nil {
		return allocation{}, fmt.Errorf("create allocation: %w", err)
	}
	r.log.Info().Str("allocation", a.ID).Str("joinCode", code).Int("maxConnections", maxConnections).Msg("allocation created")
	return a, nil
}

// Owned returns an allocation belonging to owner.
func (r *Registry) Owned(owner, id string) (allocation, error) {
	var a allocation
	err := r.db.Where("id = ? AND owner_id = ?", id, owner).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return allocation{}, relay.ErrAllocationNotFound
	}
	if err != nil {
		return allocation{}, fmt.Errorf("find allocation: %w", err)
	}
	return a, nil
}

// Publish records the address participants should dial.
func (r *Registry) Publish(owner, id, address string) error {
	if address == "" {
		return fmt.Errorf("%w: address required", errBadRequest)
	}
	return r.touch(owner, id, map[string]interface{}{"address": address})
}

// Heartbeat keeps an allocation alive and records its player count.
func (r *Registry) Heartbeat(owner, id string, players int) error {
	return r.touch(owner, id, map[string]interface{}{"players": players})
}

func (r *Registry) touch(owner, id string, fields map[string]interface{}) error {
	fields["last_seen"] = r.now()
	res := r.db.Model(&allocation{}).Where("id = ? AND owner_id = ?", id, owner).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update allocation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return relay.ErrAllocationNotFound
	}
	return nil
}

// Resolve turns a join code into a reachable allocation.
func (r *Registry) Resolve(code string) (allocation, error) {
	var a allocation
	err := r.db.Where("join_code = ?", code).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return allocation{}, relay.ErrJoinCodeNotFound
	}
	if err != nil {
		return allocation{}, fmt.Errorf("find join code: %w", err)
	}
	if a.Address == "" {
		return allocation{}, relay.ErrNotReady
	}
	if a.Players >= a.MaxConnections {
		return allocation{}, relay.ErrAllocationFull
	}
	return a, nil
}

// expire deletes allocations not seen within the TTL and returns how many.
func (r *Registry) expire() (int64, error) {
	cutoff := r.now().Add(-r.ttl)
	res := r.db.Where("last_seen < ?", cutoff).Delete(&allocation{})
	if res.Error != nil {
		return 0, fmt.Errorf("expire allocations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			n, err := r.expire()
			if err != nil {
				r.log.Error().Err(err).Msg("cleanup failed")
				continue
			}
			if n > 0 {
				r.log.Info().Int64("count", n).Dur("ttl", r.ttl).Msg("expired allocations")
			}
		}
	}
}

func (r *Registry) uniqueJoinCode() (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := generateJoinCode()
		if err != nil {
			return "", err
		}
		var n int64
		if err := r.db.Model(&allocation{}).Where("join_code = ?", code).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if n == 0 {
			return code, nil
		}
		r.log.Debug().Str("joinCode", code).Msg("join code collision, regenerating")
	}
	return "", errors.New("could not generate a unique join code")
}

func generateJoinCode() (string, error) {
	code := make([]byte, joinCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
