// Package settings is the persistent key-value configuration of the
// lifecycle daemon: the release channel the updater follows and the bcrypt
// hash of the appliance password that authorizes destructive operations.
package settings

import (
	"context"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/livos-io/livos/daemon/internal/syserr"
	"github.com/livos-io/livos/util"
)

const (
	// ChannelStable is the default release channel
	ChannelStable = "stable"
	// ChannelBeta is the pre-release channel
	ChannelBeta = "beta"
)

type settings struct {
	Channel      string `json:"channel,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Store reads and writes the settings file
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store backed by the given JSON file. The file may not
// exist yet; reads return defaults until the first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Channel returns the configured release channel, defaulting to stable when
// the settings file is missing, unreadable or holds an unknown value
func (s *Store) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to read settings, using %s channel: %v", ChannelStable, err)
		}
		return ChannelStable
	}
	switch current.Channel {
	case ChannelStable, ChannelBeta:
		return current.Channel
	default:
		return ChannelStable
	}
}

// SetChannel persists the release channel
func (s *Store) SetChannel(ctx context.Context, channel string) error {
	if channel != ChannelStable && channel != ChannelBeta {
		return syserr.Errorf(syserr.BadRequest, "unknown release channel: %s", channel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read settings: %w", err)
	}
	current.Channel = channel
	return util.WriteJson(ctx, s.path, current)
}

// SetPassword hashes and persists the appliance password
func (s *Store) SetPassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read settings: %w", err)
	}
	current.PasswordHash = string(hash)
	return util.WriteJson(ctx, s.path, current)
}

// ValidatePassword checks the given password against the stored hash. A
// missing hash fails validation: destructive operations stay locked until a
// password has been configured.
func (s *Store) ValidatePassword(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		log.Warnf("failed to read settings for password check: %v", err)
		return syserr.NewAuthorizationError()
	}
	if current.PasswordHash == "" {
		return syserr.NewAuthorizationError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(current.PasswordHash), []byte(password)); err != nil {
		return syserr.NewAuthorizationError()
	}
	return nil
}

func (s *Store) load() (settings, error) {
	var current settings
	if _, err := util.ReadJson(s.path, &current); err != nil {
		return settings{}, err
	}
	return current, nil
}
