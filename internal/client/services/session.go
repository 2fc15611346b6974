package services

import (
	"context"
	"sync"

	"github.com/vposukhov/stockpilot/internal/client/client"
	"github.com/vposukhov/stockpilot/internal/client/models"
	"github.com/vposukhov/stockpilot/internal/logging"
)

// SessionService is the session arbiter: the single identity entry point
// for the rest of the application. It decides per operation whether the
// remote backend or the offline path serves the request, owns the unified
// in-memory session, and notifies subscribers on every change.
//
// The offline mode flag is re-read at the start of every SignIn/SignOut
// call, never cached, so a mode toggle takes effect on the next operation.
// SignIn and SignOut are serialized by an internal mutex.
type SessionService struct {
	remote  client.Client
	offline *OfflineAuthService
	mode    *ModeService
	log     logging.Logger

	// opMu serializes SignIn/SignOut; two racing UI calls would otherwise
	// leave last-write-wins session state.
	opMu sync.Mutex

	stateMu sync.RWMutex
	current *models.Session

	subMu   sync.Mutex
	subs    map[int]func(*models.Session)
	nextSub int

	unwatch func()
}

func NewSessionService(remote client.Client, offline *OfflineAuthService, mode *ModeService, log logging.Logger) *SessionService {
	return &SessionService{
		remote:  remote,
		offline: offline,
		mode:    mode,
		log:     log,
		subs:    make(map[int]func(*models.Session)),
	}
}

// Init restores whatever session is valid for the current mode. With
// offline mode disabled it also subscribes to the remote backend's
// session-change notifications for the rest of the process lifetime;
// notifications arriving while offline mode is enabled are ignored.
// Runs once per process.
func (s *SessionService) Init(ctx context.Context) error {
	offline, err := s.mode.IsOfflineModeEnabled(ctx)
	if err != nil {
		return err
	}

	if offline {
		user, err := s.offline.CurrentUser(ctx)
		if err != nil {
			return err
		}
		if user != nil {
			s.setSession(&models.Session{User: models.NormalizeLocal(user), Source: models.SourceLocal})
		}
	} else {
		remoteSession, err := s.remote.CurrentSession(ctx)
		if err != nil {
			// an unreadable cache must not block startup
			s.log.Warn(ctx, "failed to restore remote session", "error", err)
		} else if remoteSession != nil {
			s.setSession(&models.Session{User: remoteSession.User, Source: models.SourceRemote})
		}

		events, unsub := s.remote.Watch()
		s.unwatch = unsub
		go s.consumeRemoteEvents(events)
	}

	return nil
}

func (s *SessionService) consumeRemoteEvents(events <-chan *models.RemoteSession) {
	for remoteSession := range events {
		ctx := context.Background()
		offline, err := s.mode.IsOfflineModeEnabled(ctx)
		if err != nil {
			s.log.Error(ctx, "failed to read mode on session notification", "error", err)
			continue
		}
		if offline {
			continue
		}

		if remoteSession == nil {
			s.setSession(nil)
		} else {
			s.setSession(&models.Session{User: remoteSession.User, Source: models.SourceRemote})
		}
	}
}

// SignIn authenticates against the backend selected by the current mode.
// Failures are surfaced unchanged and leave the unified session untouched.
func (s *SessionService) SignIn(ctx context.Context, email string, password []byte) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	offline, err := s.mode.IsOfflineModeEnabled(ctx)
	if err != nil {
		return err
	}

	if offline {
		user, err := s.offline.Authenticate(ctx, email, password)
		if err != nil {
			return err
		}
		s.setSession(&models.Session{User: models.NormalizeLocal(user), Source: models.SourceLocal})
		return nil
	}

	remoteSession, err := s.remote.SignIn(ctx, email, string(password))
	if err != nil {
		return err
	}
	s.setSession(&models.Session{User: remoteSession.User, Source: models.SourceRemote})
	return nil
}

// SignOut routes on the active session's source. A remote sign-out failure
// is non-fatal: the unified session is cleared regardless, so the UI cannot
// stay authenticated against a backend that rejected the call.
func (s *SessionService) SignOut(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current := s.Current()
	if current == nil {
		return nil
	}

	if current.Source == models.SourceLocal {
		if err := s.offline.SignOut(ctx); err != nil {
			return err
		}
		s.setSession(nil)
		return nil
	}

	if err := s.remote.SignOut(ctx); err != nil {
		s.log.Warn(ctx, "remote sign-out failed, clearing session anyway", "error", err)
	}
	s.setSession(nil)
	return nil
}

// Current returns the active unified session, or nil.
func (s *SessionService) Current() *models.Session {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.current
}

// IsAuthenticated reports whether a unified session is active.
func (s *SessionService) IsAuthenticated() bool {
	return s.Current() != nil
}

// Subscribe registers fn to run on every session change; it is also invoked
// for the change that clears the session (fn receives nil). The returned
// function unsubscribes.
func (s *SessionService) Subscribe(fn func(*models.Session)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Close stops consuming remote session notifications.
func (s *SessionService) Close() {
	if s.unwatch != nil {
		s.unwatch()
	}
}

func (s *SessionService) setSession(session *models.Session) {
	s.stateMu.Lock()
	if sameSession(s.current, session) {
		s.stateMu.Unlock()
		return
	}
	s.current = session
	s.stateMu.Unlock()

	s.subMu.Lock()
	fns := make([]func(*models.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}

func sameSession(a, b *models.Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Source != b.Source {
		return false
	}
	if a.User == nil || b.User == nil {
		return a.User == b.User
	}
	return a.User.ID == b.User.ID
}
