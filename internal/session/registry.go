package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

// Deps holds the shared collaborators every session is built from.
type Deps struct {
	Stations          []model.Station
	Gateway           PersistenceGateway
	Transcriber       Transcriber
	Evaluator         Evaluator
	Snapshots         SnapshotStore
	InterviewTypeID   string
	EvalTimeout       time.Duration
	TranscribeTimeout time.Duration
	Logger            *zap.SugaredLogger
}

// Registry owns the live sessions of this process, keyed by a server-issued
// session id.
type Registry struct {
	deps Deps
	log  *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*Controller
}

func NewRegistry(deps Deps) *Registry {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		deps:     deps,
		log:      log,
		sessions: make(map[string]*Controller),
	}
}

func (r *Registry) newController(userID, schoolName string) (string, *Controller) {
	key := uuid.NewString()
	return key, r.buildController(key, userID, schoolName)
}

func (r *Registry) buildController(key, userID, schoolName string) *Controller {
	machine := NewMachine(Params{
		Key:             key,
		UserID:          userID,
		InterviewTypeID: r.deps.InterviewTypeID,
		SchoolName:      schoolName,
		Stations:        r.deps.Stations,
		Gateway:         r.deps.Gateway,
		Evaluator:       r.deps.Evaluator,
		Snapshots:       r.deps.Snapshots,
		EvalTimeout:     r.deps.EvalTimeout,
		Logger:          r.log,
	})
	return NewController(machine, r.deps.Transcriber, r.deps.TranscribeTimeout, r.log)
}

// Create starts a fresh session for the user and returns its id.
func (r *Registry) Create(userID, schoolName string) (string, *Controller) {
	key, ctrl := r.newController(userID, schoolName)
	ctrl.Machine().Start()

	r.mu.Lock()
	r.sessions[key] = ctrl
	r.mu.Unlock()

	r.log.Infow("session created", "session", key, "user", userID)
	return key, ctrl
}

// Resume rebuilds a session from a stored interview and registers it. The
// load is awaited; on failure nothing is registered.
func (r *Registry) Resume(ctx context.Context, userID, remoteInterviewID string) (string, *Controller, error) {
	key, ctrl := r.newController(userID, "")
	if err := ctrl.Machine().Resume(ctx, remoteInterviewID); err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	r.sessions[key] = ctrl
	r.mu.Unlock()

	r.log.Infow("session resumed", "session", key, "user", userID, "interview", remoteInterviewID)
	return key, ctrl, nil
}

// Get returns the controller for the session id. A session not live in this
// process is rebuilt from its durable snapshot when one exists, so sessions
// with no remote record still survive a restart.
func (r *Registry) Get(ctx context.Context, key string) (*Controller, error) {
	r.mu.Lock()
	ctrl, ok := r.sessions[key]
	r.mu.Unlock()
	if ok {
		return ctrl, nil
	}
	return r.rehydrate(ctx, key)
}

func (r *Registry) rehydrate(ctx context.Context, key string) (*Controller, error) {
	if r.deps.Snapshots == nil {
		return nil, ErrSessionNotFound
	}
	sess, found, err := r.deps.Snapshots.Load(ctx, key)
	if err != nil {
		r.log.Warnw("snapshot load failed", "session", key, "err", err)
		return nil, ErrSessionNotFound
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	ctrl := r.buildController(key, sess.UserID, sess.SchoolName)
	ctrl.Machine().Hydrate(sess)

	r.mu.Lock()
	if existing, ok := r.sessions[key]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.sessions[key] = ctrl
	r.mu.Unlock()

	r.log.Infow("session rehydrated from snapshot", "session", key, "user", sess.UserID)
	return ctrl, nil
}

// Remove drops the session from the registry and clears its local snapshot.
func (r *Registry) Remove(ctx context.Context, key string) {
	r.mu.Lock()
	ctrl, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if ok {
		ctrl.Machine().Reset(ctx)
		r.log.Infow("session removed", "session", key)
	}
}
